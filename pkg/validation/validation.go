package validation

import (
	"strconv"
	"strings"

	"github.com/habedi/dcli/client"
	"github.com/habedi/dcli/pkg/dclierr"
)

const (
	MinWorkers = 1
	MaxWorkers = 20
)

var platforms = map[string]client.MembershipType{
	"all":      client.MembershipAll,
	"xbox":     client.MembershipXbox,
	"psn":      client.MembershipPSN,
	"steam":    client.MembershipSteam,
	"blizzard": client.MembershipBlizzard,
	"stadia":   client.MembershipStadia,
	"epic":     client.MembershipEpic,
}

// PlatformNames lists the accepted platform names in a stable order.
var PlatformNames = []string{"all", "xbox", "psn", "steam", "blizzard", "stadia", "epic"}

// ParsePlatform maps a platform name or its numeric membership type to a
// MembershipType.
func ParsePlatform(name string) (client.MembershipType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if mt, ok := platforms[name]; ok {
		return mt, nil
	}
	if n, err := strconv.Atoi(name); err == nil {
		for _, mt := range platforms {
			if int(mt) == n {
				return mt, nil
			}
		}
	}
	return 0, dclierr.ParameterParse()
}

// ParseMemberID parses a Destiny membership id. Ids are positive 64-bit integers.
func ParseMemberID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, dclierr.ParameterParse()
	}
	return id, nil
}

// ParseItemHash parses a manifest definition hash, which Bungie publishes as
// an unsigned 32-bit number.
func ParseItemHash(s string) (uint32, error) {
	h, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, dclierr.ParameterParse()
	}
	return uint32(h), nil
}

// ValidateBungieName accepts a display name optionally followed by a
// "#1234" style code.
func ValidateBungieName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dclierr.ParameterParse()
	}
	i := strings.LastIndex(name, "#")
	if i < 0 {
		return nil
	}
	display, code := name[:i], name[i+1:]
	if display == "" || len(code) == 0 || len(code) > 4 {
		return dclierr.ParameterParse()
	}
	if _, err := strconv.Atoi(code); err != nil {
		return dclierr.ParameterParse()
	}
	return nil
}

// ValidateWorkerCount checks the size of a concurrent worker pool.
func ValidateWorkerCount(workers int) error {
	if workers < MinWorkers || workers > MaxWorkers {
		return dclierr.InvalidParameters()
	}
	return nil
}
