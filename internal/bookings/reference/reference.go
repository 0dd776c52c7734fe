package reference

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"gotour/pkg/model"
)

const (
	alphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6
	stampDigits = 6
)

var referencePrefixes = map[model.BookingKind]string{
	model.KindTour:   "TOR",
	model.KindHotel:  "HTL",
	model.KindFlight: "FLT",
}

var numberPrefixes = map[model.BookingKind]string{
	model.KindTour:   "TB",
	model.KindHotel:  "HB",
	model.KindFlight: "FB",
}

// Generator produces booking references and booking numbers. Rand defaults to
// crypto/rand and Now to time.Now.
type Generator struct {
	Now  func() time.Time
	Rand func(max int64) (int64, error)
}

func New() *Generator {
	return &Generator{
		Now:  time.Now,
		Rand: cryptoInt,
	}
}

// Reference returns a code such as FLT-7QK2ZP.
func (g *Generator) Reference(kind model.BookingKind) (string, error) {
	prefix, ok := referencePrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown booking kind %q", kind)
	}

	code := make([]byte, codeLength)
	for i := range code {
		n, err := g.Rand(int64(len(alphabet)))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking reference: %w", err)
		}
		code[i] = alphabet[n]
	}
	return prefix + "-" + string(code), nil
}

// Number returns the kind prefix, the last six digits of the millisecond clock
// and four random digits, e.g. FB5123459321.
func (g *Generator) Number(kind model.BookingKind) (string, error) {
	prefix, ok := numberPrefixes[kind]
	if !ok {
		return "", fmt.Errorf("unknown booking kind %q", kind)
	}

	stamp := strconv.FormatInt(g.Now().UnixMilli(), 10)
	if len(stamp) > stampDigits {
		stamp = stamp[len(stamp)-stampDigits:]
	}

	n, err := g.Rand(9000)
	if err != nil {
		return "", fmt.Errorf("failed to generate booking number: %w", err)
	}
	return fmt.Sprintf("%s%s%d", prefix, stamp, 1000+n), nil
}

func cryptoInt(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
