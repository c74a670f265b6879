package domain

import "time"

// DefaultQualityScore substitutes a card's missing global quality score.
const DefaultQualityScore = 50.0

// DefaultQualityTier is displayed for sources without a configured tier.
const DefaultQualityTier = 5

// ProcessingResult enumerates the outcome recorded on a processed raw item.
type ProcessingResult string

const (
	ResultNone        ProcessingResult = ""
	ResultCreatedCard ProcessingResult = "created_card"
	ResultRejected    ProcessingResult = "rejected"
	ResultError       ProcessingResult = "error"
)

// Source is a configured content origin with an ingestion schedule.
type Source struct {
	Name                string
	DisplayName         string
	Enabled             bool
	ScrapeIntervalHours float64
	QualityTier         int
	LastScrapedAt       *time.Time
	LastError           *string
}

// RawItem is a captured record waiting for (or finished with) classification.
type RawItem struct {
	Processed        bool
	ProcessingResult ProcessingResult
	ScrapedAt        time.Time
	ProcessedAt      *time.Time
}

// Card is a finished content unit.
type Card struct {
	CreatedAt    time.Time
	ImageURL     *string
	LikeCount    int
	DislikeCount int
	QualityScore *float64
	SourceName   string
}

// CardSourceLink joins a card to one of the raw items it was built from.
type CardSourceLink struct {
	CardID string
}

// SourceFromRow decodes a discovery_sources row.
func SourceFromRow(r Row) Source {
	src := Source{
		Enabled:     r.Bool("enabled"),
		QualityTier: r.Int("source_quality_tier"),
	}
	src.Name, _ = r.String("name")
	src.DisplayName, _ = r.String("display_name")
	src.ScrapeIntervalHours, _ = r.Float("scrape_interval_hours")
	if t, ok := r.Time("last_scraped_at"); ok {
		src.LastScrapedAt = &t
	}
	if msg, ok := r.String("last_error"); ok && msg != "" {
		src.LastError = &msg
	}
	return src
}

// RawItemFromRow decodes a raw_scraped_content row. A result on an
// unprocessed item is discarded.
func RawItemFromRow(r Row) RawItem {
	item := RawItem{Processed: r.Bool("processed")}
	if res, ok := r.String("processing_result"); ok && item.Processed {
		item.ProcessingResult = ProcessingResult(res)
	}
	item.ScrapedAt, _ = r.Time("scraped_at")
	if t, ok := r.Time("processed_at"); ok {
		item.ProcessedAt = &t
	}
	return item
}

// CardFromRow decodes a discovery_cards row.
func CardFromRow(r Row) Card {
	card := Card{
		LikeCount:    r.Int("global_like_count"),
		DislikeCount: r.Int("global_dislike_count"),
	}
	card.CreatedAt, _ = r.Time("created_at")
	card.SourceName, _ = r.String("source_name")
	if u, ok := r.String("image_url"); ok {
		card.ImageURL = &u
	}
	if s, ok := r.Float("global_quality_score"); ok {
		card.QualityScore = &s
	}
	return card
}

// Quality returns the card's quality score or the default when unset.
func (c Card) Quality() float64 {
	if c.QualityScore == nil {
		return DefaultQualityScore
	}
	return *c.QualityScore
}

// LinkFromRow decodes a discovery_card_sources row.
func LinkFromRow(r Row) CardSourceLink {
	id, _ := r.String("discovery_card_id")
	return CardSourceLink{CardID: id}
}
