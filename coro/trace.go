package coro

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"strconv"
)

// Traceback returns the stack of the goroutine executing the coroutine.
// A running coroutine reports the caller's own stack; a suspended or
// normal one is looked up in a dump of all goroutines. Dead and
// never-started coroutines have no stack.
func (co *Coroutine) Traceback() string {
	switch {
	case co.status == StatusDead || co.gid == 0:
		return ""
	case co.status == StatusRunning && goroutineID() == co.gid:
		return string(debug.Stack())
	}
	return string(goroutineStack(co.gid))
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id out of the "goroutine N [state]:" header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func goroutineStack(gid uint64) []byte {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	header := append(strconv.AppendUint(append([]byte(nil), goroutinePrefix...), gid, 10), ' ')
	for _, block := range bytes.Split(buf, []byte("\n\n")) {
		if bytes.HasPrefix(block, header) {
			return append(block, '\n')
		}
	}
	return nil
}
