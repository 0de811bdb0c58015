package security

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mycelia-dev/subsystem-kernel/errs"
)

const defaultExpiration = 7 * 24 * time.Hour

var expirationPattern = regexp.MustCompile(`^([a-z]+|\d+)\s*([a-z]+)$`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// unitDurations maps every recognized unit spelling (spec §4.8: "hour
// /day/week plus abbreviations hr/hrs/wk/wks") to its duration.
// Sub-second/second/minute spellings are supported too: §8 scenario 6
// exercises a "1 millisecond" expiration, which the §4.8 unit list
// alone cannot express — see DESIGN.md for how the two are
// reconciled.
var unitDurations = map[string]time.Duration{
	"ms": time.Millisecond, "msec": time.Millisecond, "msecs": time.Millisecond,
	"millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"day": 24 * time.Hour, "days": 24 * time.Hour,
	"wk": 7 * 24 * time.Hour, "wks": 7 * 24 * time.Hour,
	"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// parseExpiration resolves a duration from raw per spec §4.8. An
// empty, unparseable, or nil-equivalent string defaults to one week.
func parseExpiration(raw string) time.Duration {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return defaultExpiration
	}
	m := expirationPattern.FindStringSubmatch(s)
	if m == nil {
		return defaultExpiration
	}
	qty, unit := m[1], m[2]

	n, err := strconv.Atoi(qty)
	if err != nil {
		var ok bool
		n, ok = numberWords[qty]
		if !ok {
			return defaultExpiration
		}
	}

	d, ok := unitDurations[unit]
	if !ok {
		return defaultExpiration
	}
	return time.Duration(n) * d
}

// PKR is the immutable identity record described in spec §3/§4.8.
// now is injectable for test determinism; NewPKR defaults it to
// time.Now.
type PKR struct {
	uuid      string
	name      string
	kind      string
	publicKey KeyHandle
	minter    KeyHandle
	expiresAt time.Time
	now       func() time.Time
}

// PKROptions carries the optional constructor fields.
type PKROptions struct {
	Name       string
	Minter     KeyHandle
	Expiration string // "" / "1 week" / "2 days" / "one hour" / ...
	Now        func() time.Time
}

// NewPKR validates and builds a frozen PKR. uuid, kind, and
// publicKey are mandatory.
func NewPKR(uuidStr, kind string, publicKey KeyHandle, opts PKROptions) (*PKR, error) {
	if uuidStr == "" {
		return nil, errs.New(errs.InvalidArgument, "pkr uuid must be non-empty")
	}
	if kind == "" {
		return nil, errs.New(errs.InvalidArgument, "pkr kind must be non-empty")
	}
	if publicKey == nil {
		return nil, errs.New(errs.InvalidArgument, "pkr publicKey must be a valid handle")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &PKR{
		uuid:      uuidStr,
		name:      opts.Name,
		kind:      kind,
		publicKey: publicKey,
		minter:    opts.Minter,
		expiresAt: now().Add(parseExpiration(opts.Expiration)),
		now:       now,
	}, nil
}

// UUID returns the PKR's identifier.
func (p *PKR) UUID() string { return p.uuid }

// Name returns the PKR's optional display name.
func (p *PKR) Name() string { return p.name }

// Kind returns the principal kind the PKR was minted for.
func (p *PKR) Kind() string { return p.kind }

// PublicKey returns the PKR's public key handle.
func (p *PKR) PublicKey() KeyHandle { return p.publicKey }

// ExpiresAt returns the absolute expiration instant.
func (p *PKR) ExpiresAt() time.Time { return p.expiresAt }

// IsExpired compares now() to expiresAt.
func (p *PKR) IsExpired() bool {
	return !p.now().Before(p.expiresAt)
}

// IsMinter reports whether candidate is this PKR's recorded minter.
func (p *PKR) IsMinter(candidate KeyHandle) bool {
	return p.minter != nil && p.minter == candidate
}

// IsValid is !isExpired && isMinter(minter).
func (p *PKR) IsValid(minter KeyHandle) bool {
	return !p.IsExpired() && p.IsMinter(minter)
}

// Equals compares uuid only.
func (p *PKR) Equals(other *PKR) bool {
	if other == nil {
		return false
	}
	return p.uuid == other.uuid
}

// JSON is the shape produced by ToJSON.
type JSON struct {
	UUID      string `json:"uuid"`
	Name      string `json:"name,omitempty"`
	Kind      string `json:"kind"`
	PublicKey string `json:"publicKey"`
	ExpiresAt string `json:"expiresAt"`
}

// ToJSON renders the PKR per spec §4.8: {uuid, name, kind, publicKey,
// expiresAt:ISO}. publicKey is rendered via the handle's debug label
// since the handle itself carries no serializable identity.
func (p *PKR) ToJSON() JSON {
	return JSON{
		UUID:      p.uuid,
		Name:      p.name,
		Kind:      p.kind,
		PublicKey: p.publicKey.String(),
		ExpiresAt: p.expiresAt.UTC().Format(time.RFC3339Nano),
	}
}
