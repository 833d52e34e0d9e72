package config

import (
	"fmt"
	"strings"
)

// Page size of generated documents.
// ENUM(a4, a5, letter, legal)
type PageSize int

const (
	PageSizeA4 PageSize = iota
	PageSizeA5
	PageSizeLetter
	PageSizeLegal
)

var pageSizeNames = []string{"a4", "a5", "letter", "legal"}

// Page dimensions in twips (portrait).
var pageSizeTwips = [][2]int{
	{11906, 16838},
	{8391, 11906},
	{12240, 15840},
	{12240, 20160},
}

// PageSizeNames returns list of possible string values of PageSize.
func PageSizeNames() []string {
	return append([]string(nil), pageSizeNames...)
}

func (x PageSize) String() string {
	if x < 0 || int(x) >= len(pageSizeNames) {
		return fmt.Sprintf("PageSize(%d)", x)
	}
	return pageSizeNames[x]
}

// IsValid checks if value is one of the defined page sizes.
func (x PageSize) IsValid() bool {
	return x >= 0 && int(x) < len(pageSizeNames)
}

// Twips returns page width and height in twips.
func (x PageSize) Twips() (width, height int) {
	if !x.IsValid() {
		x = PageSizeA4
	}
	return pageSizeTwips[x][0], pageSizeTwips[x][1]
}

// ParsePageSize attempts to convert a string to a PageSize.
func ParsePageSize(name string) (PageSize, error) {
	for i, n := range pageSizeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return PageSize(i), nil
		}
	}
	return PageSize(0), fmt.Errorf("%s is not a valid PageSize, try [%s]", name, strings.Join(pageSizeNames, ", "))
}

func (x PageSize) MarshalText() ([]byte, error) {
	return []byte(x.String()), nil
}

func (x *PageSize) UnmarshalText(text []byte) error {
	tmp, err := ParsePageSize(string(text))
	if err != nil {
		return err
	}
	*x = tmp
	return nil
}
