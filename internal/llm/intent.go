package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
)

// IntentClassifier turns the user's natural-language query into a
// structured analysis intent.
type IntentClassifier struct {
	completer Completer
	log       *zap.SugaredLogger
}

func NewIntentClassifier(completer Completer, log *zap.SugaredLogger) *IntentClassifier {
	return &IntentClassifier{completer: completer, log: log}
}

var validAnalysisTypes = map[string]bool{
	"data_flow": true, "control_flow": true, "dependencies": true,
	"call_graph": true, "architecture": true, "general": true,
}

var validLayouts = map[string]bool{
	"hierarchical": true, "force": true, "radial": true,
}

var validIntents = map[string]bool{
	"understand_flow": true, "find_dependencies": true, "trace_data": true,
	"architecture_overview": true, "debug_issue": true, "explain_feature": true,
}

type intentReply struct {
	Intent          string   `json:"intent"`
	FocusAreas      []string `json:"focus_areas"`
	AnalysisType    string   `json:"analysis_type"`
	PreferredLayout string   `json:"preferred_layout"`
	Depth           int      `json:"depth"`
	Keywords        []string `json:"keywords"`
}

// Classify parses the query. A model reply that cannot be decoded is a hard
// failure: generating a map from a misread question wastes a full pipeline
// run and hands the user an answer to something they didn't ask.
func (c *IntentClassifier) Classify(ctx context.Context, query, language, mainFiles string) (*model.Intent, error) {
	if mainFiles == "" {
		mainFiles = "Not specified"
	}
	user := fmt.Sprintf(intentUserPrompt, query, language, mainFiles)

	raw, err := c.completer.Complete(ctx, intentSystemPrompt, user)
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrIntentParse, "intent completion: %v", err)
	}

	payload := stripFences(raw)
	var reply intentReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		if extracted := firstJSONValue(payload); extracted != "" {
			err = json.Unmarshal([]byte(extracted), &reply)
		}
		if err != nil {
			c.log.Warnw("unparseable intent reply", "error", err)
			return nil, errdefs.Wrapf(errdefs.ErrIntentParse, "decode intent reply: %v", err)
		}
	}

	intent := &model.Intent{
		Intent:          reply.Intent,
		FocusAreas:      reply.FocusAreas,
		AnalysisType:    reply.AnalysisType,
		PreferredLayout: reply.PreferredLayout,
		Depth:           reply.Depth,
		Keywords:        reply.Keywords,
	}
	if !validIntents[intent.Intent] {
		intent.Intent = "understand_flow"
	}
	if !validAnalysisTypes[intent.AnalysisType] {
		intent.AnalysisType = "general"
	}
	if !validLayouts[intent.PreferredLayout] {
		intent.PreferredLayout = "hierarchical"
	}
	if intent.Depth < 1 {
		intent.Depth = 3
	} else if intent.Depth > 5 {
		intent.Depth = 5
	}
	if len(intent.Keywords) == 0 {
		intent.Keywords = ExtractKeywords(query)
	}

	c.log.Infow("query classified",
		"intent", intent.Intent,
		"analysis_type", intent.AnalysisType,
		"layout", intent.PreferredLayout,
		"keywords", len(intent.Keywords))
	return intent, nil
}
