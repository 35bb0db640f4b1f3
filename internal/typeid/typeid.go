package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixAnnotation = "ann"
	PrefixExport     = "exp"
	PrefixAsset      = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewAnnotationID() string { return New(PrefixAnnotation) }
func NewExportID() string     { return New(PrefixExport) }
func NewAssetID() string      { return New(PrefixAsset) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// IsAnnotationID reports whether id is a well-formed annotation id.
func IsAnnotationID(id string) bool {
	return Validate(id, PrefixAnnotation) == nil
}
