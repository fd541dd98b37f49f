package imagecache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidBlobID is returned when an asset URL does not carry a decodable blob identifier.
var ErrInvalidBlobID = errors.New("invalid blob id")

// ParseBlobID extracts the storage blob id from an active storage asset URL.
//
// The signed segment sits third from the end of the path and starts with base64 encoded
// JSON ({"_rails":{"data":<id>,...}}) followed by "--" and a digest. The public URL may
// rotate, the blob id does not.
func ParseBlobID(rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidBlobID, rawURL, err)
	}

	segments := strings.Split(parsed.Path, "/")
	if len(segments) < 3 {
		return 0, fmt.Errorf("%w: too few path segments in %s", ErrInvalidBlobID, rawURL)
	}
	signed := segments[len(segments)-3]

	encoded, _, _ := strings.Cut(signed, "--")
	if encoded == "" {
		return 0, fmt.Errorf("%w: empty signed segment in %s", ErrInvalidBlobID, rawURL)
	}

	decoded, err := decodeBase64(encoded)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidBlobID, rawURL, err)
	}

	if !gjson.ValidBytes(decoded) {
		return 0, fmt.Errorf("%w: blob info is not JSON in %s", ErrInvalidBlobID, rawURL)
	}

	data := gjson.GetBytes(decoded, "_rails.data")
	if data.Type != gjson.Number || data.Int() <= 0 {
		return 0, fmt.Errorf("%w: no numeric _rails.data in %s", ErrInvalidBlobID, rawURL)
	}

	return data.Int(), nil
}

func decodeBase64(s string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}

	return base64.RawStdEncoding.DecodeString(s)
}
