package routing_test

import (
	"testing"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSetLookupClear(t *testing.T) {
	table := routing.NewTable()
	a := &message.Recipient{Address: "A@x.com"}
	b := &message.Recipient{Address: "b@y.com"}

	require.NoError(t, table.SetRoutingOverride(a, routing.NewOverride("mail.contoso.example")))
	require.NoError(t, table.SetRoutingOverride(b, routing.NewOverride("mail.contoso.example")))
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, table.Addresses())

	o, ok := table.Lookup("a@X.com")
	require.True(t, ok)
	assert.Equal(t, "mail.contoso.example", o.Domain)
	assert.Equal(t, routing.UseOverrideDomain, o.Queue)

	require.NoError(t, table.ClearRoutingOverride(a))
	_, ok = table.Lookup("a@x.com")
	assert.False(t, ok)
}

func TestTableRejectsDuplicatesAndEmptyDomain(t *testing.T) {
	table := routing.NewTable()
	a := &message.Recipient{Address: "a@x.com"}

	require.NoError(t, table.SetRoutingOverride(a, routing.NewOverride("d.example")))
	err := table.SetRoutingOverride(a, routing.NewOverride("d.example"))
	assert.ErrorIs(t, err, routing.ErrDuplicateOverride)

	err = table.SetRoutingOverride(&message.Recipient{Address: "b@x.com"}, routing.Override{})
	assert.Error(t, err)
	assert.Equal(t, 1, table.Len())
}
