package modelsvc

// rate is USD per one million tokens.
type rate struct {
	prompt     float64
	completion float64
}

var modelRates = map[string]rate{
	"gpt-4o":           {prompt: 2.50, completion: 10.00},
	"gpt-4o-mini":      {prompt: 0.15, completion: 0.60},
	"gpt-4.1":          {prompt: 2.00, completion: 8.00},
	"gpt-4.1-mini":     {prompt: 0.40, completion: 1.60},
	"gemini-2.0-flash": {prompt: 0.10, completion: 0.40},
	"gemini-2.5-flash": {prompt: 0.30, completion: 2.50},
	"gemini-2.5-pro":   {prompt: 1.25, completion: 10.00},
	"gemini-1.5-pro":   {prompt: 1.25, completion: 5.00},
}

// CostFor prices a call in USD from its token usage. Models missing from the
// rate table cost zero so accounting never blocks a run.
func CostFor(model string, u Usage) float64 {
	_, name := SplitModelID(model)
	r, ok := modelRates[name]
	if !ok {
		return 0
	}
	return float64(u.PromptTokens)*r.prompt/1e6 + float64(u.CompletionTokens)*r.completion/1e6
}
