package system

import (
	"testing"

	. "github.com/franela/goblin"
)

func TestRandomString(t *testing.T) {
	g := Goblin(t)

	g.Describe("RandomString", func() {
		g.It("generates strings of the requested length", func() {
			for _, n := range []int{0, 1, 10, 64} {
				g.Assert(len(RandomString(n))).Equal(n)
			}
		})

		g.It("only emits alphanumeric characters", func() {
			s := RandomString(256)
			for _, r := range s {
				ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
				g.Assert(ok).IsTrue()
			}
		})
	})

	g.Describe("FirstNotEmpty", func() {
		g.It("returns the first non-empty value", func() {
			g.Assert(FirstNotEmpty("", "", "a", "b")).Equal("a")
			g.Assert(FirstNotEmpty("x")).Equal("x")
			g.Assert(FirstNotEmpty("", "")).Equal("")
		})
	})
}

func TestAtomicBool(t *testing.T) {
	g := Goblin(t)

	g.Describe("AtomicBool", func() {
		g.It("stores and loads values", func() {
			b := NewAtomicBool(true)
			g.Assert(b.Load()).IsTrue()
			b.Store(false)
			g.Assert(b.Load()).IsFalse()
		})

		g.It("only swaps when the value differs", func() {
			b := NewAtomicBool(false)
			g.Assert(b.SwapIf(true)).IsTrue()
			g.Assert(b.SwapIf(true)).IsFalse()
			g.Assert(b.Load()).IsTrue()
			g.Assert(b.SwapIf(false)).IsTrue()
			g.Assert(b.Load()).IsFalse()
		})
	})
}
