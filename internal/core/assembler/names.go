package assembler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"

	"github.com/agenthands/personav/internal/core/model"
)

var ErrNamePoolExhausted = errors.New("not enough names to replace every placeholder")

var placeholderRe = regexp.MustCompile(`<person\d+>`)

// DefaultNames is the built-in pool used to replace person placeholders.
var DefaultNames = []string{
	"Alice", "Bruno", "Chiara", "Daniel", "Elena", "Farid", "Giulia", "Hugo",
	"Irene", "Jonas", "Keiko", "Luca", "Marta", "Nadia", "Oscar", "Paola",
	"Quentin", "Rosa", "Samir", "Tessa", "Umberto", "Vera", "Walter", "Ximena",
	"Yusuf", "Zoe", "Adrian", "Beatrice", "Carlos", "Dora", "Emil", "Flora",
	"Gabriel", "Hannah", "Ivan", "Julia", "Karim", "Lena", "Marco", "Nora",
	"Omar", "Priya", "Raul", "Sofia", "Tomas", "Ursula", "Victor", "Wanda",
}

// SubstitutePlaceholders replaces the <personN> tokens of every episode with
// distinct names drawn from pool. Each episode gets its own mapping, applied
// consistently to all of its person-bearing strings.
func SubstitutePlaceholders(eps []model.Episode, pool []string, rng *rand.Rand) error {
	for i := range eps {
		if err := substitute(&eps[i], pool, rng); err != nil {
			return err
		}
	}
	return nil
}

func substitute(ep *model.Episode, pool []string, rng *rand.Rand) error {
	seen := make(map[string]struct{})
	ep.WalkStrings(func(s string) string {
		for _, p := range placeholderRe.FindAllString(s, -1) {
			seen[p] = struct{}{}
		}
		return s
	})
	if len(seen) == 0 {
		return nil
	}
	if len(seen) > len(pool) {
		return fmt.Errorf("%w: %d placeholders, %d names", ErrNamePoolExhausted, len(seen), len(pool))
	}

	placeholders := make([]string, 0, len(seen))
	for p := range seen {
		placeholders = append(placeholders, p)
	}
	sort.Strings(placeholders)

	perm := rng.Perm(len(pool))
	names := make(map[string]string, len(placeholders))
	for i, p := range placeholders {
		names[p] = pool[perm[i]]
	}
	ep.WalkStrings(func(s string) string {
		return placeholderRe.ReplaceAllStringFunc(s, func(m string) string { return names[m] })
	})
	return nil
}
