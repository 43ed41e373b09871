package analysis

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/kalambet/talkscope/internal/llm"
)

// DetailLevel selects the prompt and schema variant.
type DetailLevel string

const (
	Basic    DetailLevel = "basic"
	Advanced DetailLevel = "advanced"
)

// ParseDetailLevel maps a user-supplied string to a DetailLevel.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case Basic, "":
		return Basic, nil
	case Advanced:
		return Advanced, nil
	default:
		return "", fmt.Errorf("unknown detail level %q", s)
	}
}

// The types below mirror the JSON the prompts ask for. Results are passed
// through as decoded maps; these types only drive schema generation for
// structured output and strict-mode key checks.

type SentimentPoint struct {
	Time    string `json:"time" jsonschema:"enum=초반,enum=초반-중반,enum=중반,enum=중반-후반,enum=후반"`
	Me      int    `json:"me" jsonschema:"minimum=0,maximum=100"`
	Partner int    `json:"partner" jsonschema:"minimum=0,maximum=100"`
}

type CommunicationStyle struct {
	Affection int `json:"affection" jsonschema:"minimum=0,maximum=100"`
	Humor     int `json:"humor" jsonschema:"minimum=0,maximum=100"`
	Trust     int `json:"trust" jsonschema:"minimum=0,maximum=100"`
	Conflict  int `json:"conflict" jsonschema:"minimum=0,maximum=100"`
	Frequency int `json:"frequency" jsonschema:"minimum=0,maximum=100"`
}

type BasicResult struct {
	PartnerName           string             `json:"partner_name"`
	MyName                string             `json:"my_name"`
	MySentimentScore      int                `json:"my_sentiment_score" jsonschema:"minimum=0,maximum=100"`
	PartnerSentimentScore int                `json:"partner_sentiment_score" jsonschema:"minimum=0,maximum=100"`
	MySentimentDesc       string             `json:"my_sentiment_desc"`
	PartnerSentimentDesc  string             `json:"partner_sentiment_desc"`
	RelationshipChange    string             `json:"relationship_change"`
	SentimentGraph        []SentimentPoint   `json:"sentiment_graph" jsonschema:"minItems=5,maxItems=5"`
	CommunicationStyle    CommunicationStyle `json:"communication_style"`
	Topics                []string           `json:"topics"`
	Advice                string             `json:"advice"`
	Summary               string             `json:"summary"`
	Keywords              []string           `json:"keywords"`
}

type Statistics struct {
	TotalMessages          int     `json:"total_messages"`
	MyMessages             int     `json:"my_messages"`
	PartnerMessages        int     `json:"partner_messages"`
	AvgResponseTimeMinutes float64 `json:"avg_response_time_minutes"`
	MostActiveHour         int     `json:"most_active_hour" jsonschema:"minimum=0,maximum=23"`
	EmojiCount             int     `json:"emoji_count"`
	PhotoCount             int     `json:"photo_count"`
	LinkCount              int     `json:"link_count"`
	DailyAverageMessages   float64 `json:"daily_average_messages"`
}

type Emotions struct {
	Joy      int `json:"joy" jsonschema:"minimum=0,maximum=100"`
	Sadness  int `json:"sadness" jsonschema:"minimum=0,maximum=100"`
	Anger    int `json:"anger" jsonschema:"minimum=0,maximum=100"`
	Fear     int `json:"fear" jsonschema:"minimum=0,maximum=100"`
	Surprise int `json:"surprise" jsonschema:"minimum=0,maximum=100"`
	Disgust  int `json:"disgust" jsonschema:"minimum=0,maximum=100"`
}

type EmotionPoint struct {
	Period          string `json:"period"`
	DominantEmotion string `json:"dominant_emotion"`
	Intensity       int    `json:"intensity" jsonschema:"minimum=0,maximum=100"`
}

type EmotionTrigger struct {
	Emotion string `json:"emotion"`
	Trigger string `json:"trigger"`
	Context string `json:"context"`
}

type DeepEmotions struct {
	Emotions        Emotions         `json:"emotions"`
	EmotionTimeline []EmotionPoint   `json:"emotion_timeline"`
	EmotionTriggers []EmotionTrigger `json:"emotion_triggers"`
}

type Patterns struct {
	InitiativeRatio   int    `json:"initiative_ratio" jsonschema:"minimum=0,maximum=100"`
	QuestionRatio     int    `json:"question_ratio" jsonschema:"minimum=0,maximum=100"`
	EmpathyScore      int    `json:"empathy_score" jsonschema:"minimum=0,maximum=100"`
	FormalityLevel    string `json:"formality_level" jsonschema:"enum=formal,enum=informal,enum=mixed"`
	ResponsePattern   string `json:"response_pattern" jsonschema:"enum=quick,enum=normal,enum=delayed"`
	ConversationDepth string `json:"conversation_depth" jsonschema:"enum=shallow,enum=moderate,enum=deep"`
}

type KeyMoment struct {
	Type        string `json:"type" jsonschema:"enum=highlight,enum=conflict,enum=resolution,enum=turning_point"`
	Period      string `json:"period"`
	Description string `json:"description"`
	ImpactScore int    `json:"impact_score" jsonschema:"minimum=1,maximum=10"`
	Quote       string `json:"quote,omitempty"`
}

type RelationshipPrediction struct {
	Trend           string   `json:"trend" jsonschema:"enum=improving,enum=stable,enum=declining"`
	Confidence      int      `json:"confidence" jsonschema:"minimum=0,maximum=100"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

type TopicCluster struct {
	Name      string   `json:"name"`
	Frequency int      `json:"frequency" jsonschema:"minimum=0,maximum=100"`
	Sentiment string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative"`
	Keywords  []string `json:"keywords"`
}

type AdvancedAnalysis struct {
	Statistics             Statistics             `json:"statistics"`
	DeepEmotions           DeepEmotions           `json:"deep_emotions"`
	Patterns               Patterns               `json:"patterns"`
	KeyMoments             []KeyMoment            `json:"key_moments" jsonschema:"minItems=2,maxItems=5"`
	RelationshipPrediction RelationshipPrediction `json:"relationship_prediction"`
	TopicClusters          []TopicCluster         `json:"topic_clusters"`
}

type AdvancedResult struct {
	BasicResult
	AdvancedAnalysis AdvancedAnalysis `json:"advanced_analysis"`
}

type levelSchema struct {
	schema   *jsonschema.Schema
	llm      *llm.Schema
	required []string
}

var (
	schemasOnce sync.Once
	schemas     map[DetailLevel]levelSchema
)

func reflectSchema(v any, name string) levelSchema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := reflector.Reflect(v)

	// The provider payload is a plain map, as the SDKs marshal it verbatim.
	var def map[string]any
	b, err := json.Marshal(s)
	if err == nil {
		err = json.Unmarshal(b, &def)
	}
	if err != nil {
		panic(fmt.Sprintf("analysis: converting %s schema: %v", name, err))
	}
	delete(def, "$schema")
	delete(def, "$id")

	return levelSchema{
		schema:   s,
		llm:      &llm.Schema{Name: name, Definition: def},
		required: append([]string(nil), s.Required...),
	}
}

func loadSchemas() map[DetailLevel]levelSchema {
	schemasOnce.Do(func() {
		schemas = map[DetailLevel]levelSchema{
			Basic:    reflectSchema(&BasicResult{}, "basic_analysis"),
			Advanced: reflectSchema(&AdvancedResult{}, "advanced_analysis"),
		}
	})
	return schemas
}

// Schema returns the JSON schema for level.
func Schema(level DetailLevel) *jsonschema.Schema {
	return loadSchemas()[level].schema
}

// RequiredKeys returns the top-level keys a result for level must carry.
func RequiredKeys(level DetailLevel) []string {
	return append([]string(nil), loadSchemas()[level].required...)
}

func providerSchema(level DetailLevel) *llm.Schema {
	return loadSchemas()[level].llm
}

// CheckRequired reports a *SchemaError when result lacks any required
// top-level key for level. Nested fields and value ranges are not checked.
func CheckRequired(result map[string]any, level DetailLevel) error {
	var missing []string
	for _, k := range RequiredKeys(level) {
		if _, ok := result[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Level: level, Missing: missing}
	}
	return nil
}
