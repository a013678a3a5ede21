// Package mapping holds the coverage mapping view: the IP selector, mapping
// tags and the mapping sheet upload form.
package mapping

import (
	"errors"
	"slices"
	"strings"

	"github.com/banshee-data/coverage.report/internal/coverage"
)

// Upload form messages.
const (
	MsgSelectIP     = "Select or add an IP first."
	MsgSheetName    = "Sheet name is mandatory."
	MsgSelectFile   = "Please select an Excel file."
	MsgInvalidIP    = "Please enter a valid IP."
	MsgUploadFailed = "Upload failed. Check your sheet or try again."
	MsgUploaded     = "File uploaded successfully!"
)

// ErrNoIP, ErrNoSheet, ErrNoFile and ErrInvalidIP are the local upload
// validation failures. Their text is what the form shows.
var (
	ErrNoIP      = errors.New(MsgSelectIP)
	ErrNoSheet   = errors.New(MsgSheetName)
	ErrNoFile    = errors.New(MsgSelectFile)
	ErrInvalidIP = errors.New(MsgInvalidIP)
)

// MatchedEvent is one event tag of a mapping row.
type MatchedEvent struct {
	Event     string `json:"event"`
	IsMatched bool   `json:"is_matched"`
}

// Class is the tag class for the event.
func (m MatchedEvent) Class() string {
	if m.IsMatched {
		return "matched"
	}
	return "unmatched"
}

// Mapping is one coverage bucket row for an IP, as served by
// GET /coverage/coverage-mapping/?ip=.
type Mapping struct {
	IP            string         `json:"ip"`
	CoverageID    string         `json:"coverage_id"`
	MatchedEvents []MatchedEvent `json:"matched_events"`
}

// Counts returns how many tags are matched and unmatched.
func (m Mapping) Counts() (matched, unmatched int) {
	for _, e := range m.MatchedEvents {
		if e.IsMatched {
			matched++
		} else {
			unmatched++
		}
	}
	return matched, unmatched
}

// DistinctIPs returns the distinct non-blank ip values of events in
// first-seen order.
func DistinctIPs(events []coverage.Event) []string {
	seen := make(map[string]bool)
	var ips []string
	for _, e := range events {
		ip := strings.TrimSpace(e.IP)
		if ip == "" || seen[ip] {
			continue
		}
		seen[ip] = true
		ips = append(ips, ip)
	}
	return ips
}

// WithLocalIP appends ip to ips when it is not already listed. Locally added
// IPs are not persisted until an upload references them.
func WithLocalIP(ips []string, ip string) []string {
	ip = strings.TrimSpace(ip)
	if ip == "" || slices.Contains(ips, ip) {
		return ips
	}
	return append(slices.Clone(ips), ip)
}

// ValidateNewIP checks a label typed into the add-IP box.
func ValidateNewIP(ip string) error {
	if strings.TrimSpace(ip) == "" {
		return ErrInvalidIP
	}
	return nil
}

// Upload is the mapping sheet upload form.
type Upload struct {
	IP        string
	SheetName string
	FileName  string
}

// Validate requires the IP, the sheet name and a file, in that order.
func (u Upload) Validate() error {
	switch {
	case strings.TrimSpace(u.IP) == "":
		return ErrNoIP
	case strings.TrimSpace(u.SheetName) == "":
		return ErrNoSheet
	case u.FileName == "":
		return ErrNoFile
	}
	return nil
}

// IsValidation reports whether err is one of the local upload checks.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoIP) || errors.Is(err, ErrNoSheet) ||
		errors.Is(err, ErrNoFile) || errors.Is(err, ErrInvalidIP)
}
