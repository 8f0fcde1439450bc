package metrics

import (
	"time"

	"diet-planner/internal/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "diet_planner"

// Collectors are the Prometheus instruments of the service. Each instance
// owns its registry so tests and multiple servers do not collide.
type Collectors struct {
	Registry *prometheus.Registry

	plansGenerated   *prometheus.CounterVec
	plansRelaxed     prometheus.Counter
	planDuration     prometheus.Histogram
	llmTokens        *prometheus.CounterVec
	recipesIngested  *prometheus.CounterVec
	telegramCommands *prometheus.CounterVec
}

// NewCollectors registers the instruments and the Go runtime collectors on
// a fresh registry.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collectors{
		Registry: reg,
		plansGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_generated_total",
			Help:      "Meal plans generated, by outcome.",
		}, []string{"outcome"}),
		plansRelaxed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_relaxed_total",
			Help:      "Meal plans that needed relaxed recipe filtering.",
		}),
		planDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_generation_duration_seconds",
			Help:      "Time spent generating a meal plan.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed, by agent and kind.",
		}, []string{"agent", "kind"}),
		recipesIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_ingested_total",
			Help:      "Recipe posts processed during ingestion, by result.",
		}, []string{"result"}),
		telegramCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_commands_total",
			Help:      "Bot commands handled, by command.",
		}, []string{"command"}),
	}
}

// ObservePlan records one generation. Safe on a nil receiver.
func (c *Collectors) ObservePlan(failed, relaxed bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	c.plansGenerated.WithLabelValues(outcome).Inc()
	if relaxed {
		c.plansRelaxed.Inc()
	}
	c.planDuration.Observe(elapsed.Seconds())
}

// ObserveLLM adds the tokens of one LLM call.
func (c *Collectors) ObserveLLM(meta llm.AgentMeta) {
	if c == nil {
		return
	}
	c.llmTokens.WithLabelValues(meta.AgentName, "prompt").Add(float64(meta.Usage.PromptTokens))
	c.llmTokens.WithLabelValues(meta.AgentName, "completion").Add(float64(meta.Usage.CompletionTokens))
}

// Ingestion results.
const (
	IngestParsed    = "parsed"
	IngestExtracted = "extracted"
	IngestSkipped   = "skipped"
	IngestFailed    = "failed"
)

// ObserveIngest counts one processed post.
func (c *Collectors) ObserveIngest(result string) {
	if c == nil {
		return
	}
	c.recipesIngested.WithLabelValues(result).Inc()
}

// ObserveCommand counts one bot command.
func (c *Collectors) ObserveCommand(command string) {
	if c == nil {
		return
	}
	c.telegramCommands.WithLabelValues(command).Inc()
}
