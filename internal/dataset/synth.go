package dataset

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/example/bookshop/tools/eventgen/internal/sampler"
)

// PoolUser is a synthesized user-pool row. It carries the descriptive
// attributes the demo datasets ship with; the generator core only reads
// user_id, gender, and age.
type PoolUser struct {
	UserID           string
	Gender           string
	Age              int
	Location         string
	PromoSensitivity string
	Device           string
	EverM            bool
	EverY            bool
	EverK            bool
}

// ageBand is one age range with its population weight.
type ageBand struct {
	min, max int
	weight   float64
}

// ageDistribution approximates the census age structure the demo pool is
// drawn from.
var ageDistribution = []ageBand{
	{0, 4, 0.024}, {5, 9, 0.034}, {10, 14, 0.044}, {15, 19, 0.044},
	{20, 24, 0.051}, {25, 29, 0.067}, {30, 34, 0.071}, {35, 39, 0.064},
	{40, 44, 0.075}, {45, 49, 0.075}, {50, 54, 0.085}, {55, 59, 0.083},
	{60, 64, 0.080}, {65, 69, 0.071}, {70, 74, 0.049}, {75, 79, 0.035},
	{80, 84, 0.026}, {85, 89, 0.015}, {90, 94, 0.006}, {95, 99, 0.001},
}

// genderDistribution is the pool gender ratio.
var genderDistribution = []sampler.Entry{
	{Name: "female", Weight: 0.49},
	{Name: "male", Weight: 0.49},
	{Name: "other", Weight: 0.02},
}

// promoSensitivityLevels are drawn uniformly.
var promoSensitivityLevels = []string{"high", "medium", "low"}

// everCategoryProb is the probability of each ever_* flag being set.
var everCategoryProb = map[string]float64{
	"ever_M": 0.3,
	"ever_Y": 0.6,
	"ever_K": 0.15,
}

// deviceByAge picks a device with an age-dependent iPhone share.
func deviceByAge(rng *rand.Rand, age int) string {
	var iphoneRatio float64
	switch {
	case age < 30:
		iphoneRatio = 0.6
	case age < 40:
		iphoneRatio = 0.5
	case age < 50:
		iphoneRatio = 0.3
	case age < 60:
		iphoneRatio = 0.1
	case age < 70:
		iphoneRatio = 0.05
	default:
		iphoneRatio = 0.02
	}

	if rng.Float64() < iphoneRatio {
		return "iPhone"
	}
	return "Galaxy"
}

// SynthesizeUserPool generates n pool users with zero-padded sequential IDs.
// The faker supplies location names; the numeric draws come from rng so a
// fixed seed reproduces the pool.
func SynthesizeUserPool(rng *rand.Rand, faker *gofakeit.Faker, n int) ([]PoolUser, error) {
	if n <= 0 {
		return nil, fmt.Errorf("dataset: pool size must be positive, got %d", n)
	}

	genderTable, err := sampler.NewTable(genderDistribution)
	if err != nil {
		return nil, fmt.Errorf("dataset: gender distribution: %w", err)
	}

	ageWeights := make([]float64, len(ageDistribution))
	for i, band := range ageDistribution {
		ageWeights[i] = band.weight
	}
	ageIndex, err := sampler.NewIndex(ageWeights)
	if err != nil {
		return nil, fmt.Errorf("dataset: age distribution: %w", err)
	}

	users := make([]PoolUser, n)
	for i := range users {
		band := ageDistribution[ageIndex.Draw(rng)]
		age := band.min + rng.IntN(band.max-band.min+1)

		users[i] = PoolUser{
			UserID:           fmt.Sprintf("%08d", i+1),
			Gender:           genderTable.Choose(rng),
			Age:              age,
			Location:         fmt.Sprintf("%s %s", faker.City(), faker.Street()),
			PromoSensitivity: promoSensitivityLevels[rng.IntN(len(promoSensitivityLevels))],
			Device:           deviceByAge(rng, age),
			EverM:            rng.Float64() < everCategoryProb["ever_M"],
			EverY:            rng.Float64() < everCategoryProb["ever_Y"],
			EverK:            rng.Float64() < everCategoryProb["ever_K"],
		}
	}
	return users, nil
}

// WriteUserPool writes a synthesized pool as a user-pool CSV.
func WriteUserPool(path string, users []PoolUser) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"user_id", "gender", "age", "location", "promo_sensitivity", "device", "ever_M", "ever_Y", "ever_K"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("dataset: writing %s: %w", path, err)
	}

	for _, u := range users {
		record := []string{
			u.UserID,
			u.Gender,
			strconv.Itoa(u.Age),
			u.Location,
			u.PromoSensitivity,
			u.Device,
			strconv.FormatBool(u.EverM),
			strconv.FormatBool(u.EverY),
			strconv.FormatBool(u.EverK),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("dataset: writing %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("dataset: flushing %s: %w", path, err)
	}
	return nil
}

// SynthesizeCatalog generates n catalog items with faker book titles and
// genres, then promotes a random bestseller subset to the high purchase
// weight.
func SynthesizeCatalog(rng *rand.Rand, faker *gofakeit.Faker, n int) ([]Item, error) {
	if n <= 0 {
		return nil, fmt.Errorf("dataset: catalog size must be positive, got %d", n)
	}

	items := make([]Item, n)
	for i := range items {
		book := faker.Book()
		items[i] = Item{
			ID:             fmt.Sprintf("B%06d", i+1),
			Title:          book.Title,
			Category:       book.Genre,
			Price:          float64(5000 + rng.IntN(40001)),
			PurchaseWeight: DefaultPurchaseWeight,
		}
	}

	AssignBestsellerWeights(rng, items, DefaultBestsellerCount)
	return items, nil
}

// WriteCatalog writes a catalog CSV with the canonical english headers.
func WriteCatalog(path string, items []Item) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title", "price", "category", "purchase_weight"}); err != nil {
		return fmt.Errorf("dataset: writing %s: %w", path, err)
	}

	for _, item := range items {
		record := []string{
			item.ID,
			item.Title,
			strconv.FormatFloat(item.Price, 'f', -1, 64),
			item.Category,
			strconv.FormatFloat(item.PurchaseWeight, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("dataset: writing %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("dataset: flushing %s: %w", path, err)
	}
	return nil
}
