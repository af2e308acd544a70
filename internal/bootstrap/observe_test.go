package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

type processorStub struct {
	info *domain.MedicalInfo
	err  error
}

func (p processorStub) Process(context.Context, domain.Document) (*domain.MedicalInfo, error) {
	return p.info, p.err
}

type recorderFake struct {
	calls []error
	infos []*domain.MedicalInfo
}

func (r *recorderFake) RecordDocument(info *domain.MedicalInfo, _ time.Duration, err error) {
	r.infos = append(r.infos, info)
	r.calls = append(r.calls, err)
}

func TestObservedProcessorRecordsEveryRun(t *testing.T) {
	rec := &recorderFake{}
	resolved := &domain.MedicalInfo{Status: domain.StatusResolved}

	ok := observeProcessor(processorStub{info: resolved}, rec)
	if info, err := ok.Process(context.Background(), domain.Document{ID: "doc-1"}); err != nil || info != resolved {
		t.Fatalf("unexpected passthrough: %v %v", info, err)
	}

	failure := errors.New("extract failed")
	bad := observeProcessor(processorStub{err: failure}, rec)
	if _, err := bad.Process(context.Background(), domain.Document{ID: "doc-2"}); !errors.Is(err, failure) {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if len(rec.calls) != 2 || rec.calls[0] != nil || !errors.Is(rec.calls[1], failure) || rec.infos[0] != resolved {
		t.Fatalf("unexpected recordings %+v", rec)
	}
}
