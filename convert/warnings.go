package convert

import (
	"fmt"

	"go.uber.org/zap"
)

// Section names part of a document markup belongs to.
type Section int

const (
	SectionHeader Section = iota
	SectionBody
	SectionFooter
)

func (s Section) String() string {
	switch s {
	case SectionHeader:
		return "header"
	case SectionFooter:
		return "footer"
	default:
		return "body"
	}
}

// WarningKind classifies recoverable problems found during generation.
type WarningKind int

const (
	WarnUnresolvedPlaceholder WarningKind = iota
	WarnUnknownColor
	WarnBadStyle
	WarnTableFallback
	WarnImageFailed
	WarnImageUnsupported
)

var warningKindNames = []string{
	"unresolved-placeholder",
	"unknown-color",
	"bad-style",
	"table-fallback",
	"image-failed",
	"image-unsupported",
}

func (k WarningKind) String() string {
	if k < 0 || int(k) >= len(warningKindNames) {
		return fmt.Sprintf("WarningKind(%d)", k)
	}
	return warningKindNames[k]
}

func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Warning is a problem which did not stop generation but may have changed
// the result: something was dropped or rendered differently.
type Warning struct {
	Kind    WarningKind `yaml:"kind"`
	Section Section     `yaml:"section"`
	Detail  string      `yaml:"detail"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Section, w.Kind, w.Detail)
}

func (s Section) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// warnings collects distinct warnings in order of appearance and logs each
// one when it is first seen.
type warnings struct {
	list []Warning
	seen map[Warning]bool
	log  *zap.Logger
}

func newWarnings(log *zap.Logger) *warnings {
	return &warnings{seen: make(map[Warning]bool), log: log}
}

func (w *warnings) add(kind WarningKind, section Section, detail string) {
	wr := Warning{Kind: kind, Section: section, Detail: detail}
	if w.seen[wr] {
		return
	}
	w.seen[wr] = true
	w.list = append(w.list, wr)
	w.log.Debug("Generation warning",
		zap.Stringer("kind", kind), zap.Stringer("section", section), zap.String("detail", detail))
}

// sorted returns warnings ordered by section keeping source order inside of
// each section.
func (w *warnings) sorted() []Warning {
	out := make([]Warning, 0, len(w.list))
	for _, s := range []Section{SectionHeader, SectionBody, SectionFooter} {
		for _, wr := range w.list {
			if wr.Section == s {
				out = append(out, wr)
			}
		}
	}
	return out
}
