package ma2protocol

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"testing/iotest"
)

func TestTelnetReader(t *testing.T) {
	const iac = telnetIAC
	tests := []struct {
		name  string
		input []byte
		data  string
		reply []byte
	}{
		{"plain", []byte("Fixture 1\r\n"), "Fixture 1\r\n", nil},
		{"refuses DO", []byte{'a', iac, telnetDO, 1, 'b'}, "ab", []byte{iac, telnetWONT, 1}},
		{"refuses WILL", []byte{iac, telnetWILL, 3, 'x'}, "x", []byte{iac, telnetDONT, 3}},
		{"ignores WONT", []byte{iac, telnetWONT, 1, 'x'}, "x", nil},
		{"escaped IAC", []byte{'a', iac, iac, 'b'}, "a\xffb", nil},
		{"skips subnegotiation", []byte{iac, telnetSB, 24, 1, iac, telnetSE, 'x'}, "x", nil},
		{"several options", []byte{iac, telnetDO, 1, iac, telnetWILL, 3, 'z'}, "z",
			[]byte{iac, telnetWONT, 1, iac, telnetDONT, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var mu sync.Mutex
			r := newTelnetReader(bytes.NewReader(tt.input), &out, &mu)
			data, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.data {
				t.Errorf("got data %q, want %q", data, tt.data)
			}
			if !bytes.Equal(out.Bytes(), tt.reply) {
				t.Errorf("got reply %v, want %v", out.Bytes(), tt.reply)
			}
		})
	}
}

// TestTelnetReaderSplitReads feeds one byte per read so commands straddle
// read boundaries.
func TestTelnetReaderSplitReads(t *testing.T) {
	input := []byte{'o', 'k', telnetIAC, telnetDO, 1, telnetIAC, telnetSB, 24, telnetIAC, telnetSE, '!'}
	var out bytes.Buffer
	var mu sync.Mutex
	r := newTelnetReader(iotest.OneByteReader(bytes.NewReader(input)), &out, &mu)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "ok!" {
		t.Errorf("got %q, want %q", data, "ok!")
	}
	if !bytes.Equal(out.Bytes(), []byte{telnetIAC, telnetWONT, 1}) {
		t.Errorf("got reply %v", out.Bytes())
	}
}

func TestTranscriptWraps(t *testing.T) {
	tr := NewTranscript(3)
	for _, line := range []string{"one", "two", "three", "four"} {
		tr.Record(Sent, line)
	}

	entries := tr.Entries()
	expected := []string{"two", "three", "four"}
	if len(entries) != len(expected) {
		t.Fatalf("got %d entries, want %d", len(entries), len(expected))
	}
	for i, e := range entries {
		if e.Text != expected[i] {
			t.Errorf("entry %d: got %q, want %q", i, e.Text, expected[i])
		}
	}
}

func TestTranscriptPartial(t *testing.T) {
	tr := NewTranscript(0)
	tr.Record(Sent, "Go Executor 1")
	tr.Record(Received, "[Channel]>")

	entries := tr.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Direction.String() != ">" || entries[1].Direction.String() != "<" {
		t.Errorf("got directions %s %s", entries[0].Direction, entries[1].Direction)
	}
}
