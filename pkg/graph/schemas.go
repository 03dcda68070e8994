package graph

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/invopop/jsonschema"
)

// Category is the broad domain of a knowledge graph.
type Category string

const (
	CategoryPolitics     Category = "Политика"
	CategoryEconomy      Category = "Экономика"
	CategorySports       Category = "Спорт"
	CategoryTechnology   Category = "Технологии"
	CategoryCulture      Category = "Культура"
	CategorySociety      Category = "Общество"
	CategoryWorld        Category = "Мир"
	CategoryScience      Category = "Наука"
	CategoryHealth       Category = "Здоровье"
	CategoryBusiness     Category = "Бизнес"
	CategoryEducation    Category = "Образование"
	CategoryEcology      Category = "Экология"
	CategoryCrime        Category = "Криминал"
	CategoryMilitary     Category = "Армия"
	CategoryShowBusiness Category = "Шоу-бизнес"
)

// Categories lists every Category in declaration order.
var Categories = []Category{
	CategoryPolitics, CategoryEconomy, CategorySports, CategoryTechnology,
	CategoryCulture, CategorySociety, CategoryWorld, CategoryScience,
	CategoryHealth, CategoryBusiness, CategoryEducation, CategoryEcology,
	CategoryCrime, CategoryMilitary, CategoryShowBusiness,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// JSONSchema restricts the generated schema to the known categories.
func (Category) JSONSchema() *jsonschema.Schema {
	enum := make([]any, len(Categories))
	for i, c := range Categories {
		enum[i] = string(c)
	}
	return &jsonschema.Schema{
		Type:        "string",
		Enum:        enum,
		Description: "Broad domain for filtering.",
	}
}

// Entity is a node extracted from an article.
type Entity struct {
	Name        string  `json:"name" validate:"required" jsonschema_description:"Unique identifier (e.g., 'иван грозный', 'генеральный директор')."`
	Label       string  `json:"label" validate:"required" jsonschema_description:"Type: Person, Organization, Role, Country, Event, etc."`
	Description *string `json:"description,omitempty" jsonschema:"nullable" jsonschema_description:"A short 5-word summary of who this entity is IN THIS CONTEXT (e.g. 'CEO of Tesla', 'Russian opposition leader'). Helps distinguish between homonyms."`
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	Source  string  `json:"source" validate:"required" jsonschema_description:"Name of the source entity."`
	Target  string  `json:"target" validate:"required" jsonschema_description:"Name of the target entity."`
	Type    string  `json:"type" jsonschema_description:"Relationship type (e.g., HELD_POSITION, LOCATED_IN)."`
	Context string  `json:"context" jsonschema_description:"Detailed context of the relationship. Include numbers, specific treaties, or locations (e.g., 'Meeting regarding the $44B Twitter acquisition')."`
	Date    *string `json:"date" jsonschema:"nullable" jsonschema_description:"Specific date or timeframe of the relationship (YYYY-MM-DD)."`
}

// Article is the source text a graph is extracted from.
type Article struct {
	Name string  `json:"name" validate:"required" jsonschema_description:"Article title"`
	Text string  `json:"text" jsonschema_description:"Full article text"`
	Date *string `json:"date" jsonschema:"nullable" jsonschema_description:"Publication date of the article (YYYY-MM-DD)."`
}

// ID returns the md5 hex digest of "<name>_<date>". A missing date is
// rendered as "None" so ids stay stable across ingestion tools.
func (a Article) ID() string {
	date := "None"
	if a.Date != nil {
		date = *a.Date
	}
	sum := md5.Sum([]byte(a.Name + "_" + date))
	return hex.EncodeToString(sum[:])
}

// KnowledgeGraph is the structured extraction of one article.
type KnowledgeGraph struct {
	Category      Category       `json:"category" validate:"required"`
	Topic         string         `json:"topic" validate:"required" jsonschema_description:"The main subject of the knowledge graph (e.g., 'Выборы в США 2024')."`
	Entities      []Entity       `json:"entities" validate:"dive"`
	Relationships []Relationship `json:"relationships" validate:"dive"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
