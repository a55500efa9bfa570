package ma2protocol

import (
	"io"
	"sync"
)

// Telnet command bytes (RFC 854).
const (
	telnetSE   = 240
	telnetSB   = 250
	telnetWILL = 251
	telnetWONT = 252
	telnetDO   = 253
	telnetDONT = 254
	telnetIAC  = 255
)

type telnetState int

const (
	tsData telnetState = iota
	tsIAC
	tsOption
	tsSub
	tsSubIAC
)

// telnetReader strips telnet negotiation from a byte stream and refuses
// every option the peer offers or requests.
type telnetReader struct {
	r   io.Reader
	w   io.Writer
	wmu *sync.Mutex // shared with command writes

	state telnetState
	verb  byte
}

func newTelnetReader(r io.Reader, w io.Writer, wmu *sync.Mutex) *telnetReader {
	return &telnetReader{r: r, w: w, wmu: wmu}
}

// Read returns only data bytes. Replies to negotiation are written before
// Read returns.
func (t *telnetReader) Read(p []byte) (int, error) {
	for {
		n, err := t.r.Read(p)
		data, reply := t.filter(p[:n])
		if len(reply) > 0 && t.w != nil {
			t.wmu.Lock()
			_, werr := t.w.Write(reply)
			t.wmu.Unlock()
			if werr != nil && err == nil {
				err = werr
			}
		}
		if data > 0 || err != nil {
			return data, err
		}
	}
}

// filter compacts data bytes to the front of p and returns their count
// plus any negotiation replies.
func (t *telnetReader) filter(p []byte) (int, []byte) {
	out := 0
	var reply []byte
	for _, b := range p {
		switch t.state {
		case tsData:
			if b == telnetIAC {
				t.state = tsIAC
				continue
			}
			p[out] = b
			out++
		case tsIAC:
			switch b {
			case telnetIAC:
				p[out] = b
				out++
				t.state = tsData
			case telnetWILL, telnetWONT, telnetDO, telnetDONT:
				t.verb = b
				t.state = tsOption
			case telnetSB:
				t.state = tsSub
			default:
				t.state = tsData
			}
		case tsOption:
			switch t.verb {
			case telnetDO:
				reply = append(reply, telnetIAC, telnetWONT, b)
			case telnetWILL:
				reply = append(reply, telnetIAC, telnetDONT, b)
			}
			t.state = tsData
		case tsSub:
			if b == telnetIAC {
				t.state = tsSubIAC
			}
		case tsSubIAC:
			if b == telnetSE {
				t.state = tsData
			} else {
				t.state = tsSub
			}
		}
	}
	return out, reply
}
