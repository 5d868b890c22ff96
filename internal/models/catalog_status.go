package models

import (
	"encoding/json"
	"strings"
)

// CatalogStatus is the marketplace's classification of a listing inside a catalog product.
// The zero value means the marketplace did not report a status.
type CatalogStatus string

const (
	CatalogStatusWinning           CatalogStatus = "winning"
	CatalogStatusSharingFirstPlace CatalogStatus = "sharing_first_place"
	CatalogStatusCompeting         CatalogStatus = "competing"
	CatalogStatusListed            CatalogStatus = "listed"
	CatalogStatusUnknown           CatalogStatus = "unknown"
)

// ParseCatalogStatus maps a raw status string onto the closed set.
// Empty input stays empty; unrecognized values become CatalogStatusUnknown.
func ParseCatalogStatus(raw string) CatalogStatus {
	switch s := CatalogStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ""
	case CatalogStatusWinning, CatalogStatusSharingFirstPlace, CatalogStatusCompeting, CatalogStatusListed:
		return s
	default:
		return CatalogStatusUnknown
	}
}

func (s *CatalogStatus) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = CatalogStatusUnknown
		return nil
	}
	if raw == nil {
		*s = ""
		return nil
	}
	*s = ParseCatalogStatus(*raw)
	return nil
}
