// Package message contains the message and recipient model handed to the reroute engine by the
// transport pipeline.
package message

import (
	"strings"
)

// Header is a single message header field.
type Header struct {
	Name  string
	Value string
}

// HeaderList holds message headers in the order they appear in the message.
type HeaderList []Header

// FindFirst returns the first header matching name.  Names are compared case-insensitively.
func (hl HeaderList) FindFirst(name string) (Header, bool) {
	for _, h := range hl {
		if strings.EqualFold(h.Name, name) {
			return h, true
		}
	}
	return Header{}, false
}

// Count returns the number of headers matching name.
func (hl HeaderList) Count(name string) int {
	n := 0
	for _, h := range hl {
		if strings.EqualFold(h.Name, name) {
			n++
		}
	}
	return n
}

// Append adds a header after the last header in the list.
func (hl *HeaderList) Append(name, value string) {
	*hl = append(*hl, Header{Name: name, Value: value})
}

// Clone returns a copy of the list that can be modified without affecting the original.
func (hl HeaderList) Clone() HeaderList {
	if hl == nil {
		return nil
	}
	c := make(HeaderList, len(hl))
	copy(c, hl)
	return c
}

// String renders the headers in wire format, one per line.
func (hl HeaderList) String() string {
	b := &strings.Builder{}
	for _, h := range hl {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	return b.String()
}

// Message holds the header data of a message after recipient resolution.  Only Header is
// modified during evaluation.
type Message struct {
	ID              string
	From            string
	Subject         string
	IsSystemMessage bool
	Header          HeaderList
}

// Sender returns the normalized sender address used in log entries.
func (m *Message) Sender() string {
	return strings.ToLower(strings.TrimSpace(m.From))
}

// Category is the organizational category assigned to a recipient by the transport categorizer.
type Category int

const (
	// CategoryOther covers every recipient outside the organization.
	CategoryOther Category = iota
	// CategoryInSameOrganization marks recipients hosted by the same organization as the sender.
	CategoryInSameOrganization
)

func (c Category) String() string {
	switch c {
	case CategoryInSameOrganization:
		return "InSameOrganization"
	case CategoryOther:
		return "Other"
	}
	return "Unknown"
}

// ParseCategory converts the output of Category.String back into a Category.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "insameorganization", "intra", "internal":
		return CategoryInSameOrganization, true
	case "other", "extern", "external", "":
		return CategoryOther, true
	}
	return CategoryOther, false
}

// Recipient is an envelope recipient of the message being evaluated.
type Recipient struct {
	Address  string
	Category Category
}

// String returns the recipient address.
func (r *Recipient) String() string {
	return r.Address
}
