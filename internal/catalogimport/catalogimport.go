// Package catalogimport reads achievement and reward definitions from an
// .xlsx workbook. Each sheet starts with a header row; blank rows are skipped.
//
// Sheet "achievements":
//
//	id | name | description | category | requirement_type | requirement_value | comparison | points_reward | rarity | active
//
// Sheet "rewards":
//
//	id | title | description | category | cost | tier | availability | max_redemptions | valid_from | valid_until | active
//
// An empty id is derived from the name. Dates are YYYY-MM-DD; valid_until
// covers the whole day.
package catalogimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/security"
	"github.com/mroshb/fitquest/pkg/utils"
	"github.com/xuri/excelize/v2"
)

const (
	AchievementsSheet = "achievements"
	RewardsSheet      = "rewards"
)

// catalogNamespace seeds ids for names that do not reduce to an ASCII slug.
var catalogNamespace = uuid.MustParse("6f1c9a52-3d0e-4c7b-9a1e-2b8f5d4c7e10")

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01-02-06", "1/2/06"}

type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Catalog is the parsed workbook. Rows that failed to parse are reported in
// Errors and left out of the other slices.
type Catalog struct {
	Achievements []models.AchievementBadge
	Rewards      []models.Reward
	Errors       []RowError
}

func Open(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses both sheets. It fails only when the workbook has neither.
func Read(f *excelize.File) (*Catalog, error) {
	sheets := make(map[string]string)
	for _, name := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(name))] = name
	}

	achievementsSheet, hasAchievements := sheets[AchievementsSheet]
	rewardsSheet, hasRewards := sheets[RewardsSheet]
	if !hasAchievements && !hasRewards {
		return nil, fmt.Errorf("workbook has no %q or %q sheet", AchievementsSheet, RewardsSheet)
	}

	catalog := &Catalog{}
	if hasAchievements {
		err := eachRow(f, achievementsSheet, func(row []string) error {
			badge, err := parseAchievement(row)
			if err != nil {
				return err
			}
			catalog.Achievements = append(catalog.Achievements, badge)
			return nil
		}, &catalog.Errors)
		if err != nil {
			return nil, err
		}
	}
	if hasRewards {
		err := eachRow(f, rewardsSheet, func(row []string) error {
			reward, err := parseReward(row)
			if err != nil {
				return err
			}
			catalog.Rewards = append(catalog.Rewards, reward)
			return nil
		}, &catalog.Errors)
		if err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func eachRow(f *excelize.File, sheet string, fn func(row []string) error, errs *[]RowError) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		if err := fn(row); err != nil {
			*errs = append(*errs, RowError{Sheet: sheet, Row: i + 1, Err: err})
		}
	}
	return nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func enumCell(row []string, i int) string {
	return strings.ToLower(cell(row, i))
}

func parseAchievement(row []string) (models.AchievementBadge, error) {
	name := security.SanitizeText(cell(row, 1), security.MaxNameLength)
	id, err := catalogID(cell(row, 0), name)
	if err != nil {
		return models.AchievementBadge{}, err
	}

	category := enumCell(row, 3)
	switch category {
	case models.AchievementConsistency, models.AchievementPerformance,
		models.AchievementSocial, models.AchievementMilestone:
	default:
		return models.AchievementBadge{}, fmt.Errorf("unknown category %q", category)
	}

	value, err := intCell(row, 5, "requirement_value")
	if err != nil {
		return models.AchievementBadge{}, err
	}
	comparison := enumCell(row, 6)
	if comparison == "" {
		comparison = models.CompareGTE
	}
	bonus, err := intCell(row, 7, "points_reward")
	if err != nil {
		return models.AchievementBadge{}, err
	}
	active, err := boolCell(row, 9)
	if err != nil {
		return models.AchievementBadge{}, err
	}

	badge := models.AchievementBadge{
		ID:          id,
		Name:        name,
		Description: security.SanitizeText(cell(row, 2), security.MaxDescriptionLength),
		Category:    category,
		Requirement: models.Requirement{
			Type:       enumCell(row, 4),
			Value:      value,
			Comparison: comparison,
		},
		PointsReward: bonus,
		Rarity:       enumCell(row, 8),
		IsActive:     active,
	}
	if err := badge.Validate(); err != nil {
		return models.AchievementBadge{}, err
	}
	return badge, nil
}

func parseReward(row []string) (models.Reward, error) {
	title := security.SanitizeText(cell(row, 1), security.MaxNameLength)
	id, err := catalogID(cell(row, 0), title)
	if err != nil {
		return models.Reward{}, err
	}

	cost, err := intCell(row, 4, "cost")
	if err != nil {
		return models.Reward{}, err
	}

	reward := models.Reward{
		ID:           id,
		Title:        title,
		Description:  security.SanitizeText(cell(row, 2), security.MaxDescriptionLength),
		Category:     enumCell(row, 3),
		FitCoinCost:  cost,
		Tier:         enumCell(row, 5),
		Availability: enumCell(row, 6),
		CreatedBy:    "import",
	}

	if cell(row, 7) != "" {
		limit, err := intCell(row, 7, "max_redemptions")
		if err != nil {
			return models.Reward{}, err
		}
		reward.MaxRedemptions = &limit
	}
	if reward.ValidFrom, err = dateCell(row, 8, false); err != nil {
		return models.Reward{}, err
	}
	if reward.ValidUntil, err = dateCell(row, 9, true); err != nil {
		return models.Reward{}, err
	}
	if reward.IsActive, err = boolCell(row, 10); err != nil {
		return models.Reward{}, err
	}

	if err := reward.Validate(); err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

// catalogID returns the explicit id when given, otherwise a slug of name, and
// falls back to a name-derived UUID when the slug is not a valid id.
func catalogID(explicit, name string) (string, error) {
	if explicit != "" {
		id := strings.ToLower(explicit)
		if !security.ValidateSlug(id) {
			return "", fmt.Errorf("invalid id %q", explicit)
		}
		return id, nil
	}
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if slug := utils.Slugify(name); security.ValidateSlug(slug) {
		return slug, nil
	}
	return uuid.NewSHA1(catalogNamespace, []byte(name)).String(), nil
}

func intCell(row []string, i int, field string) (int64, error) {
	raw := utils.NormalizeDigits(cell(row, i))
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a whole number", field, cell(row, i))
	}
	return v, nil
}

// boolCell defaults to true for an empty cell.
func boolCell(row []string, i int) (bool, error) {
	switch enumCell(row, i) {
	case "", "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("active: %q is not yes or no", cell(row, i))
	}
}

func dateCell(row []string, i int, endOfDay bool) (*time.Time, error) {
	raw := utils.NormalizeDigits(cell(row, i))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("%q is not a date", cell(row, i))
}
