package evaluation

import (
	"context"
	"strings"
	"sync"
	"text/template"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"salescoach/internal/domain"
	"salescoach/internal/llm"
)

// ErrEmptyTranscript is returned when there is nothing to evaluate.
var ErrEmptyTranscript = errors.New("transcript is empty")

const promptTemplate = `
你是销售培训师。请对以下销售对话进行快速评估（请控制在200字以内）:

对话记录说明：
- salesperson: 销售人员的话术
- customer: 客户的回应

{{.}}

请按以下格式简洁回复:

**综合评分**: X/10

**各项评分**:
需求挖掘: X/10
产品推荐: X/10
异议处理: X/10
建立信任: X/10
推动成交: X/10

**优点**: [1-2个关键优点]

**改进建议**: [2-3个具体建议]
`

var prompt = template.Must(template.New("evaluation").Parse(promptTemplate))

// ClientFactory builds the model client used for scoring.
type ClientFactory func() (llm.Client, error)

// Engine scores a finished transcript with one model call.
type Engine struct {
	factory ClientFactory
	opts    llm.Options

	mu     sync.Mutex
	client llm.Client
}

// NewEngine returns an engine; the client is built on first Evaluate and then reused.
func NewEngine(factory ClientFactory, opts llm.Options) *Engine {
	return &Engine{factory: factory, opts: opts}
}

// DefaultOptions are the low-temperature, short-output settings for scoring.
func DefaultOptions() llm.Options {
	return llm.Options{Temperature: 0.1, MaxTokens: 300, Stream: true}
}

// Prompt renders the scoring prompt for transcript.
func Prompt(transcript []domain.Turn) (string, error) {
	var b strings.Builder
	if err := prompt.Execute(&b, domain.RenderTurns(transcript)); err != nil {
		return "", errors.Wrap(err, "render evaluation prompt")
	}
	return b.String(), nil
}

// Evaluate returns the model's report text as-is.
func (e *Engine) Evaluate(ctx context.Context, transcript []domain.Turn, onToken llm.TokenFunc) (string, error) {
	if len(transcript) == 0 {
		return "", ErrEmptyTranscript
	}
	client, err := e.getClient()
	if err != nil {
		return "", err
	}
	p, err := Prompt(transcript)
	if err != nil {
		return "", err
	}
	log.Info().Int("turns", len(transcript)).Msg("evaluating session")
	report, err := client.Complete(ctx, p, e.opts, onToken)
	if err != nil {
		return "", errors.Wrap(err, "evaluation")
	}
	return report, nil
}

func (e *Engine) getClient() (llm.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		return e.client, nil
	}
	c, err := e.factory()
	if err != nil {
		return nil, errors.Wrap(err, "init evaluation client")
	}
	e.client = c
	return c, nil
}

// Reset drops the cached client.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = nil
}
