package model

import (
	"errors"
	"strings"
)

const MinTargetUsernameLength = 3

var ErrUsernameRequired = errors.New("username required")
var ErrUsernameTooShort = errors.New("username too short")
var ErrInvalidRAM = errors.New("invalid ram allocation")

// RAMSize is the memory allocation token sent with a panel request.
// Values are megabytes; "0" asks for an unlimited allocation.
type RAMSize string

const (
	RAM1GB       RAMSize = "1000"
	RAM2GB       RAMSize = "2000"
	RAM3GB       RAMSize = "3000"
	RAM4GB       RAMSize = "4000"
	RAM5GB       RAMSize = "5000"
	RAM6GB       RAMSize = "6000"
	RAM7GB       RAMSize = "7000"
	RAM8GB       RAMSize = "8000"
	RAM9GB       RAMSize = "9000"
	RAM10GB      RAMSize = "10000"
	RAMUnlimited RAMSize = "0"

	DefaultRAM = RAM1GB
)

// RAMSizes lists the selectable allocations in display order.
var RAMSizes = []RAMSize{
	RAM1GB, RAM2GB, RAM3GB, RAM4GB, RAM5GB,
	RAM6GB, RAM7GB, RAM8GB, RAM9GB, RAM10GB,
	RAMUnlimited,
}

// Valid returns true if r is one of RAMSizes.
func (r RAMSize) Valid() bool {
	for _, s := range RAMSizes {
		if r == s {
			return true
		}
	}
	return false
}

// Label returns a human-readable name, e.g. "2 GB" or "Unlimited".
func (r RAMSize) Label() string {
	switch r {
	case RAMUnlimited:
		return "Unlimited"
	case "":
		return "unknown"
	}
	s := string(r)
	if strings.HasSuffix(s, "000") {
		return strings.TrimSuffix(s, "000") + " GB"
	}
	return s + " MB"
}

// ParseRAMSize maps either a token ("2000") or a label ("2 GB") to a RAMSize.
func ParseRAMSize(s string) (RAMSize, error) {
	s = strings.TrimSpace(s)
	for _, r := range RAMSizes {
		if s == string(r) || strings.EqualFold(s, r.Label()) {
			return r, nil
		}
	}
	return "", ErrInvalidRAM
}

// ResourceRequest asks the backend to provision a panel for TargetUsername.
type ResourceRequest struct {
	TargetUsername string
	RAM            RAMSize
}

// NewResourceRequest trims the username and applies the default allocation
// when ram is empty.
func NewResourceRequest(username string, ram RAMSize) ResourceRequest {
	if ram == "" {
		ram = DefaultRAM
	}
	return ResourceRequest{TargetUsername: strings.TrimSpace(username), RAM: ram}
}

// Validate checks the request locally, before anything is sent.
func (r ResourceRequest) Validate() error {
	if err := ValidateTargetUsername(r.TargetUsername); err != nil {
		return err
	}
	if !r.RAM.Valid() {
		return ErrInvalidRAM
	}
	return nil
}

// ValidateTargetUsername requires a non-empty name of at least
// MinTargetUsernameLength characters.
func ValidateTargetUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrUsernameRequired
	}
	if len([]rune(name)) < MinTargetUsernameLength {
		return ErrUsernameTooShort
	}
	return nil
}
