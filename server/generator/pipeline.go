// Package generator runs the query-to-slides pipeline: classification,
// script planning, concurrent slide rendering, and assembly into the
// client session.
package generator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/showme-app/showme/plugin/ai"
	"github.com/showme-app/showme/plugin/ai/classifier"
	svcerrors "github.com/showme-app/showme/server/internal/errors"
	"github.com/showme-app/showme/server/internal/observability"
	"github.com/showme-app/showme/server/session"
)

// fragmentMaxAttempts bounds generation tries per fragment: two retries,
// then the fragment is omitted from the segment.
const fragmentMaxAttempts = 3

// defaultMaxParallel bounds concurrent slide renders per request.
const defaultMaxParallel = 3

// Planner produces a topic script for a query.
type Planner interface {
	PlanTopic(ctx context.Context, query, activeTopic string) (*ai.TopicPlan, error)
}

// Request is one generation run.
type Request struct {
	Query      string
	SessionKey string
	Session    *session.Manager
}

// Result is the outcome of a successful run. OmittedFragments lists script
// fragments whose slides failed after retries; the segment is still
// delivered without them.
type Result struct {
	Topic            session.Topic
	Slides           []session.Slide
	SegmentID        string
	Classification   classifier.Label
	OmittedFragments []string
}

// Pipeline coordinates one generation end to end.
type Pipeline struct {
	classifier  classifier.Classifier
	planner     Planner
	slides      *SlideGenerator
	broker      *Broker
	maxParallel int64
}

// NewPipeline creates a generation pipeline.
func NewPipeline(c classifier.Classifier, p Planner, s *SlideGenerator, b *Broker) *Pipeline {
	return &Pipeline{
		classifier:  c,
		planner:     p,
		slides:      s,
		broker:      b,
		maxParallel: defaultMaxParallel,
	}
}

// Run executes the pipeline for one query. The session is only mutated
// after at least one slide succeeds; a fully failed or canceled run leaves
// it untouched.
func (p *Pipeline) Run(ctx context.Context, req *Request) (*Result, error) {
	log := observability.Logger(ctx)
	p.publish(req.SessionKey, Event{Stage: StageReceived})

	activeID, activeName := req.Session.ActiveContext()
	label, err := p.classifier.Classify(ctx, &classifier.Request{
		Query:         req.Query,
		ActiveTopicID: activeID,
		ActiveTopic:   activeName,
		History:       req.Session.History(),
	})
	if err != nil {
		log.Warn("classification errored, treating query as new topic",
			slog.String("error", err.Error()))
		label = classifier.LabelNewTopic
	}
	log.Info("query classified", slog.String("classification", string(label)))
	p.publish(req.SessionKey, Event{Stage: StageClassified})

	planContext := ""
	if label == classifier.LabelFollowUp {
		planContext = activeName
	}
	plan, err := p.planner.PlanTopic(ctx, req.Query, planContext)
	if err != nil {
		p.publish(req.SessionKey, Event{Stage: StageFailed})
		return nil, svcerrors.PipelineFailed("script planning failed", err)
	}
	total := len(plan.Fragments)
	log.Info("script planned",
		slog.String("topic", plan.Name),
		slog.Int(observability.LogFieldSlidesTotal, total))
	p.publish(req.SessionKey, Event{Stage: StageScriptPlanned, SlidesTotal: total})

	rendered := p.renderFragments(ctx, req.SessionKey, plan, total)

	if err := ctx.Err(); err != nil {
		p.publish(req.SessionKey, Event{Stage: StageFailed})
		return nil, svcerrors.ContextCanceled(err)
	}

	slides := make([]session.Slide, 0, total)
	var omitted []string
	for i, s := range rendered {
		if s == nil {
			omitted = append(omitted, plan.Fragments[i])
			continue
		}
		slides = append(slides, *s)
	}
	if len(slides) == 0 {
		p.publish(req.SessionKey, Event{Stage: StageFailed})
		return nil, svcerrors.PipelineFailed("every slide failed to generate", nil)
	}
	p.publish(req.SessionKey, Event{Stage: StageAssembled, SlidesReady: len(slides), SlidesTotal: total})

	segmentID := "seg_" + shortuuid.New()
	for i := range slides {
		slides[i].SegmentID = segmentID
	}

	// The session decides topic creation, and with it the header slide:
	// a follow_up whose active topic was evicted mid-run still gets a
	// fresh topic with a header.
	target := session.AppendTarget{
		NewTopicName: plan.Name,
		NewTopicIcon: plan.Icon,
	}
	if label == classifier.LabelFollowUp {
		target.TopicID = activeID
	}
	topic := req.Session.AppendSlides(target, slides)
	req.Session.RecordExchange(req.Query, label)

	log.Info("segment delivered",
		slog.String("topic_id", topic.ID),
		slog.String("segment_id", segmentID),
		slog.Int(observability.LogFieldSlidesReady, len(slides)),
		slog.Int(observability.LogFieldSlidesTotal, total),
		slog.Int("omitted", len(omitted)),
		slog.Int64(observability.LogFieldDuration, log.DurationMs()))
	p.publish(req.SessionKey, Event{Stage: StageDelivered, SlidesReady: len(slides), SlidesTotal: total})

	return &Result{
		Topic:            topic,
		Slides:           slides,
		SegmentID:        segmentID,
		Classification:   label,
		OmittedFragments: omitted,
	}, nil
}

// renderFragments renders every fragment with bounded parallelism and
// returns the results in script order. Failed fragments are nil.
func (p *Pipeline) renderFragments(ctx context.Context, key string, plan *ai.TopicPlan, total int) []*session.Slide {
	log := observability.Logger(ctx)
	sem := semaphore.NewWeighted(p.maxParallel)
	rendered := make([]*session.Slide, total)

	var ready int32
	var wg sync.WaitGroup
	for i, fragment := range plan.Fragments {
		wg.Add(1)
		go func(i int, fragment string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			slide, err := p.renderWithRetry(ctx, plan.Name, fragment)
			if err != nil {
				log.Warn("fragment omitted after retries",
					slog.Int("fragment_index", i),
					slog.String("error", err.Error()))
				return
			}
			rendered[i] = slide
			n := atomic.AddInt32(&ready, 1)
			p.publish(key, Event{Stage: StageSlidesGenerating, SlidesReady: int(n), SlidesTotal: total})
		}(i, fragment)
	}
	wg.Wait()
	return rendered
}

func (p *Pipeline) renderWithRetry(ctx context.Context, topicName, fragment string) (*session.Slide, error) {
	var lastErr error
	for attempt := 0; attempt < fragmentMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slide, err := p.slides.Generate(ctx, topicName, fragment)
		if err == nil {
			return slide, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (p *Pipeline) publish(key string, ev Event) {
	if p.broker != nil {
		p.broker.Publish(key, ev)
	}
}
