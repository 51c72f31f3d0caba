package client

import (
	"encoding/json"
	"strconv"
)

// MembershipType is the platform a Destiny account belongs to.
type MembershipType int

const (
	MembershipAll      MembershipType = -1
	MembershipXbox     MembershipType = 1
	MembershipPSN      MembershipType = 2
	MembershipSteam    MembershipType = 3
	MembershipBlizzard MembershipType = 4
	MembershipStadia   MembershipType = 5
	MembershipEpic     MembershipType = 6
)

func (m MembershipType) String() string {
	switch m {
	case MembershipAll:
		return "All"
	case MembershipXbox:
		return "Xbox"
	case MembershipPSN:
		return "PlayStation"
	case MembershipSteam:
		return "Steam"
	case MembershipBlizzard:
		return "Blizzard"
	case MembershipStadia:
		return "Stadia"
	case MembershipEpic:
		return "Epic"
	default:
		return "Unknown(" + strconv.Itoa(int(m)) + ")"
	}
}

// PlatformErrorCode is the ErrorCode field of every API response.
type PlatformErrorCode int

const (
	ErrorCodeNone                      PlatformErrorCode = 0
	ErrorCodeSuccess                   PlatformErrorCode = 1
	ErrorCodeSystemDisabled            PlatformErrorCode = 5
	ErrorCodeParameterParseFailure     PlatformErrorCode = 7
	ErrorCodeInvalidParameters         PlatformErrorCode = 18
	ErrorCodeDestinyPrivacyRestriction PlatformErrorCode = 1665
	ErrorCodeAPIKeyMissingFromRequest  PlatformErrorCode = 2101
)

// envelope wraps every platform API response.
type envelope struct {
	Response        json.RawMessage   `json:"Response"`
	ErrorCode       PlatformErrorCode `json:"ErrorCode"`
	ThrottleSeconds int               `json:"ThrottleSeconds"`
	ErrorStatus     string            `json:"ErrorStatus"`
	Message         string            `json:"Message"`
	MessageData     map[string]string `json:"MessageData"`
}

// UserInfoCard is one Destiny membership as returned by player search.
type UserInfoCard struct {
	MembershipID                string         `json:"membershipId"`
	MembershipType              MembershipType `json:"membershipType"`
	DisplayName                 string         `json:"displayName"`
	BungieGlobalDisplayName     string         `json:"bungieGlobalDisplayName"`
	BungieGlobalDisplayNameCode int            `json:"bungieGlobalDisplayNameCode"`
	CrossSaveOverride           MembershipType `json:"crossSaveOverride"`
	IconPath                    string         `json:"iconPath,omitempty"`
}

// BungieName is the "Name#0123" form of the account's global display name.
func (u UserInfoCard) BungieName() string {
	if u.BungieGlobalDisplayName == "" {
		return u.DisplayName
	}
	code := strconv.Itoa(u.BungieGlobalDisplayNameCode)
	for len(code) < 4 {
		code = "0" + code
	}
	return u.BungieGlobalDisplayName + "#" + code
}

// Manifest describes the currently published manifest content databases.
type Manifest struct {
	Version                 string            `json:"version"`
	MobileWorldContentPaths map[string]string `json:"mobileWorldContentPaths"`
}

// ContentPath returns the content database path for a language.
func (m Manifest) ContentPath(language string) (string, bool) {
	p, ok := m.MobileWorldContentPaths[language]
	return p, ok && p != ""
}
