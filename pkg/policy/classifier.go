package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inbucket/reroute/pkg/directory"
	"github.com/inbucket/reroute/pkg/message"
)

// Variant names a recipient eligibility policy.
type Variant string

const (
	// RerouteAll overrides every recipient.
	RerouteAll Variant = "accept-all"
	// RerouteUnlessInDirectory overrides recipients the directory does not know.
	RerouteUnlessInDirectory Variant = "exclude-directory"
	// RerouteUnlessIntraOrg overrides recipients not categorized as same-organization.
	RerouteUnlessIntraOrg Variant = "exclude-intra-org"
)

// Provenance returns the default marker value identifying this variant in stamped headers.
func (v Variant) Provenance() string {
	switch v {
	case RerouteAll:
		return "ACSOnPremConnector-RerouteAll"
	case RerouteUnlessInDirectory:
		return "ACSOnPremConnector-RerouteExternalBasedOnGAL"
	case RerouteUnlessIntraOrg:
		return "ACSOnPremConnector-RerouteExternalBasedOnTransportCategorization"
	}
	return "ACSOnPremConnector-" + string(v)
}

// ParseVariant validates a configured policy name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case RerouteAll, RerouteUnlessInDirectory, RerouteUnlessIntraOrg:
		return v, nil
	}
	return "", fmt.Errorf("unknown policy %q", s)
}

// Verdict is the outcome of classifying a single recipient.
type Verdict struct {
	Eligible bool
	Reason   string // Why the recipient keeps its routing; empty when Eligible.
	Basis    string // The evidence the decision was based on, for the audit log.
}

// Classifier decides, per recipient, whether a routing override applies.  Implementations must
// not modify the recipient and must be safe for concurrent use.
type Classifier interface {
	Variant() Variant
	Classify(ctx context.Context, rcpt *message.Recipient) (Verdict, error)
}

// NewClassifier constructs the Classifier for variant.  dir is only consulted by
// RerouteUnlessInDirectory and may be nil for the other variants.
func NewClassifier(variant Variant, dir directory.Directory) (Classifier, error) {
	switch variant {
	case RerouteAll:
		return AcceptAll{}, nil
	case RerouteUnlessInDirectory:
		if dir == nil {
			return nil, errors.New("policy exclude-directory requires a directory")
		}
		return &ExcludeDirectoryMembers{Directory: dir}, nil
	case RerouteUnlessIntraOrg:
		return ExcludeIntraOrg{}, nil
	}
	return nil, fmt.Errorf("unknown policy %q", variant)
}

// AcceptAll makes every recipient eligible.
type AcceptAll struct{}

// Variant implements Classifier.
func (AcceptAll) Variant() Variant { return RerouteAll }

// Classify implements Classifier.
func (AcceptAll) Classify(_ context.Context, _ *message.Recipient) (Verdict, error) {
	return Verdict{Eligible: true, Basis: "policy reroutes all recipients"}, nil
}

// ExcludeDirectoryMembers makes a recipient eligible only if the directory has no entry for it.
// An entry of any type keeps normal delivery.
type ExcludeDirectoryMembers struct {
	Directory directory.Directory
}

// Variant implements Classifier.
func (*ExcludeDirectoryMembers) Variant() Variant { return RerouteUnlessInDirectory }

// Classify implements Classifier.  Lookup failures other than directory.ErrNotFound are returned.
func (c *ExcludeDirectoryMembers) Classify(
	ctx context.Context,
	rcpt *message.Recipient,
) (Verdict, error) {
	entry, err := c.Directory.Find(ctx, rcpt.Address)
	if errors.Is(err, directory.ErrNotFound) {
		return Verdict{Eligible: true, Basis: "directory lookup returned NULL"}, nil
	}
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{
		Eligible: false,
		Reason:   "recipient exists in directory",
		Basis:    "directory lookup returned type " + entry.Type.String(),
	}, nil
}

// ExcludeIntraOrg makes a recipient eligible unless the transport categorized it as belonging to
// the same organization.
type ExcludeIntraOrg struct{}

// Variant implements Classifier.
func (ExcludeIntraOrg) Variant() Variant { return RerouteUnlessIntraOrg }

// Classify implements Classifier.
func (ExcludeIntraOrg) Classify(_ context.Context, rcpt *message.Recipient) (Verdict, error) {
	basis := "categorization returned " + rcpt.Category.String()
	if rcpt.Category == message.CategoryInSameOrganization {
		return Verdict{Eligible: false, Reason: "recipient is intra-org", Basis: basis}, nil
	}
	return Verdict{Eligible: true, Basis: basis}, nil
}
