package seeding

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"
)

var (
	firstNames = []string{"Ana", "Ben", "Cy", "Dara", "Eli", "Fay", "Gus", "Hana", "Ivo", "Jun", "Kit", "Lou"}
	adjectives = []string{"Silent", "Crimson", "Hollow", "Distant", "Paper", "Winter", "Broken", "Golden"}
	nouns      = []string{"Harbor", "Orchard", "Archive", "Lantern", "Meridian", "Garden", "Tide", "Atlas"}
	authors    = []string{"M. Okafor", "L. Brandt", "S. Haddad", "R. Ito", "P. Novak", "E. Sousa"}
)

// Score bands: most ratings are middling, a few are extreme.
const (
	caseMiddling = iota
	caseGood
	casePoor
	caseLoved
	caseHated
	caseAnything
	numCases
)

// randFloat returns a value in [0, 1) from crypto/rand.
func randFloat() float64 {
	const divisor = 1_000_000
	n, _ := rand.Int(rand.Reader, big.NewInt(divisor))
	return float64(n.Int64()) / divisor
}

func randIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateScore draws a score on the 0..10 scale, rounded to one decimal.
func generateScore() float64 {
	var v float64
	switch randIndex(numCases) {
	case caseMiddling:
		v = 4 + randFloat()*3
	case caseGood:
		v = 7 + randFloat()*2
	case casePoor:
		v = 1 + randFloat()*3
	case caseLoved:
		v = 9 + randFloat()
	case caseHated:
		v = randFloat()
	default:
		v = randFloat() * 10
	}
	return math.Round(v*10) / 10
}

// driftScore moves a pre-discussion score by up to two points either way.
func driftScore(pre float64) float64 {
	v := pre + (randFloat()*4 - 2)
	v = math.Max(0, math.Min(10, v))
	return math.Round(v*10) / 10
}

// memberName returns a name unique across runs.
func memberName(i int) string {
	return fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], uuid.NewString()[:6])
}

func bookTitle() string {
	return "The " + adjectives[randIndex(len(adjectives))] + " " + nouns[randIndex(len(nouns))]
}

func bookAuthor() string {
	return authors[randIndex(len(authors))]
}

func pageCount() int {
	return 120 + randIndex(600)
}
