package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// Node is one XML element
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Child returns the first direct child named name, or nil
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// XML decodes a body into a *Node tree rooted at the document element.
// Namespace prefixes are dropped from element and attribute names.
type XML struct{}

// Parse implements courier.Parser
func (XML) Parse(raw []byte) (interface{}, error) {
	return parseXML(raw)
}

func parseXML(raw []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid XML: %v", courier.ErrFormat, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("%w: invalid XML: multiple root elements", courier.ErrFormat)
			}
			node := &Node{Name: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if node.Attrs == nil {
					node.Attrs = make(map[string]string, len(t.Attr))
				}
				node.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: invalid XML: unexpected </%s>", courier.ErrFormat, t.Name.Local)
			}
			top := stack[len(stack)-1]
			top.Text = strings.TrimSpace(top.Text)
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: invalid XML: no root element", courier.ErrFormat)
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: invalid XML: unclosed <%s>", courier.ErrFormat, stack[len(stack)-1].Name)
	}
	return root, nil
}

// XMLMap decodes a body into nested maps keyed by element name, without the
// document element itself. Attributes appear under "@name", repeated elements
// collapse into a []interface{}, and an element with neither attributes nor
// children becomes its text. Text mixed with children is kept under "#text".
type XMLMap struct{}

// Parse implements courier.Parser
func (XMLMap) Parse(raw []byte) (interface{}, error) {
	root, err := parseXML(raw)
	if err != nil {
		return nil, err
	}
	return flatten(root), nil
}

func flatten(n *Node) interface{} {
	if len(n.Attrs) == 0 && len(n.Children) == 0 {
		return n.Text
	}

	m := make(map[string]interface{}, len(n.Attrs)+len(n.Children))
	for name, value := range n.Attrs {
		m["@"+name] = value
	}
	for _, c := range n.Children {
		v := flatten(c)
		switch prev := m[c.Name].(type) {
		case nil:
			m[c.Name] = v
		case []interface{}:
			m[c.Name] = append(prev, v)
		default:
			m[c.Name] = []interface{}{prev, v}
		}
	}
	if n.Text != "" {
		m["#text"] = n.Text
	}
	return m
}
