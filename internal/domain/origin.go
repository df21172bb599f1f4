package domain

import "fmt"

// Origin identifies which host messaging platform an annotation was created on.
type Origin string

// Supported host platforms.
const (
	OriginWhatsApp  Origin = "whatsapp-web"
	OriginMessenger Origin = "messenger"
	OriginTelegram  Origin = "telegram-web"
	OriginInstagram Origin = "instagram-web"
)

// ParseOrigin validates and returns an Origin from its string form.
func ParseOrigin(s string) (Origin, error) {
	switch Origin(s) {
	case OriginWhatsApp, OriginMessenger, OriginTelegram, OriginInstagram:
		return Origin(s), nil
	}
	return "", fmt.Errorf("unknown origin %q", s)
}

// Valid reports whether the origin is one of the supported platforms.
func (o Origin) Valid() bool {
	_, err := ParseOrigin(string(o))
	return err == nil
}

func (o Origin) String() string {
	return string(o)
}
