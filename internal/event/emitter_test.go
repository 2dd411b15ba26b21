package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitter(t *testing.T) {
	watcher := 0
	emitter := New[int]()

	inc := func(int) Result {
		watcher++
		return Continue
	}

	first := emitter.Attach("test", inc)
	emitter.Fire("test", 0)
	assert.Equal(t, 1, watcher)

	second := emitter.Attach("test", inc)
	assert.NotEqual(t, first, second)
	emitter.Fire("test", 0)
	assert.Equal(t, 3, watcher)

	assert.True(t, emitter.Detach("test", first))
	assert.Equal(t, 1, emitter.Len("test"))
	emitter.Fire("test", 0)
	assert.Equal(t, 4, watcher)

	assert.False(t, emitter.Detach("test", first), "detaching twice reports not found")
	assert.True(t, emitter.Detach("test", second))
	emitter.Fire("test", 0)
	assert.Equal(t, 4, watcher)

	emitter.Attach("test", inc)
	assert.True(t, emitter.Clear("test"))
	assert.False(t, emitter.Clear("test"))
	assert.False(t, emitter.Detach("test", second))
}

func TestEmitter_FireUnregisteredIsNoop(t *testing.T) {
	emitter := New[string]()
	assert.Equal(t, Continue, emitter.Fire("nothing", "x"))
}

func TestEmitter_Order(t *testing.T) {
	var got []string
	emitter := New[string]()
	for _, name := range []string{"a", "b", "c"} {
		name := name
		emitter.Attach("evt", func(arg string) Result {
			got = append(got, name+arg)
			return Continue
		})
	}

	emitter.Fire("evt", "!")
	assert.Equal(t, []string{"a!", "b!", "c!"}, got)
}

func TestEmitter_StopShortCircuits(t *testing.T) {
	calls := 0
	emitter := New[struct{}]()
	emitter.Attach("evt", func(struct{}) Result { calls++; return Stop })
	emitter.Attach("evt", func(struct{}) Result { calls++; return Continue })

	assert.Equal(t, Stop, emitter.Fire("evt", struct{}{}))
	assert.Equal(t, 1, calls)

	// a Stop only affects the Fire call that produced it
	assert.Equal(t, Stop, emitter.Fire("evt", struct{}{}))
	assert.Equal(t, 2, calls)
}

func TestEmitter_AbortIsReturned(t *testing.T) {
	emitter := New[int]()
	emitter.Attach("evt", func(int) Result { return Abort })
	assert.Equal(t, Abort, emitter.Fire("evt", 1))
}

func TestEmitter_Named(t *testing.T) {
	var got []string
	emitter := New[int]()

	h1 := emitter.AttachNamed("evt", "logger", func(int) Result { got = append(got, "v1"); return Continue })
	h2 := emitter.AttachNamed("evt", "logger", func(int) Result { got = append(got, "v2"); return Continue })
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, emitter.Len("evt"))

	emitter.Fire("evt", 0)
	assert.Equal(t, []string{"v2"}, got)

	assert.True(t, emitter.DetachNamed("evt", "logger"))
	assert.False(t, emitter.DetachNamed("evt", "logger"))
	assert.False(t, emitter.DetachNamed("evt", ""))
}

func TestEmitter_AttachNamedEmptyName(t *testing.T) {
	var got []string
	emitter := New[int]()

	h1 := emitter.Attach("evt", func(int) Result { got = append(got, "plain"); return Continue })
	h2 := emitter.AttachNamed("evt", "", func(int) Result { got = append(got, "unnamed"); return Continue })
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, emitter.Len("evt"))

	emitter.Fire("evt", 0)
	assert.Equal(t, []string{"plain", "unnamed"}, got)
}

func TestEmitter_DetachDuringFire(t *testing.T) {
	calls := 0
	emitter := New[int]()
	var h Handle
	h = emitter.Attach("evt", func(int) Result {
		calls++
		emitter.Detach("evt", h)
		return Continue
	})
	emitter.Attach("evt", func(int) Result { calls++; return Continue })

	emitter.Fire("evt", 0)
	emitter.Fire("evt", 0)
	assert.Equal(t, 3, calls)
}

func TestEmitter_FireAll(t *testing.T) {
	var got []string
	emitter := New[string]()
	emitter.Attach("one", func(s string) Result { got = append(got, "one:"+s); return Stop })
	emitter.Attach("one", func(s string) Result { got = append(got, "skipped"); return Continue })
	emitter.Attach("two", func(s string) Result { got = append(got, "two:"+s); return Continue })

	emitter.FireAll("x")
	assert.ElementsMatch(t, []string{"one:x", "two:x"}, got)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "continue", Continue.String())
	assert.Equal(t, "stop", Stop.String())
	assert.Equal(t, "abort", Abort.String())
	assert.Equal(t, "unknown", Result(42).String())
}
