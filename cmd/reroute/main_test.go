package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRcptFlag(t *testing.T) {
	var r rcptFlag
	require.NoError(t, r.Set("a@x.com"))
	require.NoError(t, r.Set("b@y.com:intra"))
	assert.Error(t, r.Set("c@z.com:nearby"))
	assert.Error(t, r.Set("not an address"))

	require.Len(t, r, 2)
	assert.Equal(t, message.CategoryOther, r[0].Category)
	assert.Equal(t, message.CategoryInSameOrganization, r[1].Category)
	assert.Equal(t, "a@x.com:Other,b@y.com:InSameOrganization", r.String())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Creator:reroute", "Contact:pm@x.com"},
		splitList(" Creator:reroute, ,Contact:pm@x.com,"))
	assert.Nil(t, splitList(""))
}

func writeMessage(t *testing.T, dir string, i int, target string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("m%d.eml", i))
	src := fmt.Sprintf("From: sender@x.com\r\nSubject: test %d\r\nMessage-ID: <m%d@x.com>\r\n"+
		"X-ACSOnPremConnector-Target: %s\r\n\r\nbody\r\n", i, i, target)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestEvaluateFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeMessage(t, dir, 0, "mail0.contoso.example"),
		writeMessage(t, dir, 1, "not a domain!!"),
		writeMessage(t, dir, 2, "mail2.contoso.example"),
	}
	eng, err := reroute.New(reroute.Options{}, policy.ExcludeIntraOrg{}, nil)
	require.NoError(t, err)

	var rcpts rcptFlag
	require.NoError(t, rcpts.Set("a@x.com"))
	require.NoError(t, rcpts.Set("b@y.com:intra"))

	results, err := evaluateFiles(context.Background(), eng, paths, rcpts, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, reroute.Processed, results[0].result.Outcome)
	assert.Equal(t, []string{"a@x.com"}, results[0].routes.Addresses())
	assert.Equal(t, reroute.WarningInvalidDomain, results[1].result.Outcome)
	assert.Equal(t, 0, results[1].routes.Len())
	assert.Equal(t, "mail2.contoso.example", results[2].result.Target)

	out := &bytes.Buffer{}
	results[0].print(out)
	assert.Equal(t, paths[0]+": Processed mail0.contoso.example\n"+
		"\toverride a@x.com -> mail0.contoso.example\n"+
		"\theader X-ACSOnPremConnector-Name: ACSOnPremConnector-RerouteExternalBasedOnTransportCategorization\n",
		out.String())
}

func TestEvaluateFilesMissing(t *testing.T) {
	eng, err := reroute.New(reroute.Options{}, policy.AcceptAll{}, nil)
	require.NoError(t, err)
	_, err = evaluateFiles(context.Background(), eng,
		[]string{filepath.Join(t.TempDir(), "missing.eml")}, nil, 1)
	assert.Error(t, err)
}
