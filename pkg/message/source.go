package message

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/jhillyerd/enmime/v2"
)

// ReadSource builds a Message from an RFC 5322 message source.  Header order is preserved; the
// decoded From, Subject and Message-ID are taken from the parsed envelope.
func ReadSource(r io.Reader) (*Message, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(source))
	if err != nil {
		return nil, err
	}
	msg := &Message{
		ID:      strings.Trim(env.GetHeader("Message-ID"), "<> "),
		Subject: env.GetHeader("Subject"),
		Header:  readHeaderList(source),
	}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	return msg, nil
}

// readHeaderList unfolds the header block of source, keeping the original field order.
func readHeaderList(source []byte) HeaderList {
	var hl HeaderList
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 4096), len(source)+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			// End of header block.
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of the previous field.
			if n := len(hl); n > 0 {
				hl[n-1].Value += " " + strings.TrimSpace(line)
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		hl.Append(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return hl
}
