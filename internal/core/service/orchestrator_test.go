package service_test

import (
	"errors"
	"testing"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pendingImage(id int64) domain.CanonicalImage {
	return domain.CanonicalImage{Record: &domain.ImageRecord{
		ID:              id,
		ProductID:       7,
		OriginalLocator: "https://uploads.example.com/native.jpg",
		Status:          domain.StatusPending,
	}}
}

func newOrchestratorService(
	images *MockImagesStorage,
	events *stubEvents,
	providers ...port.RemovalProvider,
) *service.Service {
	products := new(MockProductsStorage)
	products.On("ProductByID", mock.Anything, mock.Anything).
		Return(domain.Product{ID: 7, SKU: "SKU1"}, nil)

	opts := []service.Option{}
	if events != nil {
		opts = append(opts, service.EventsProducerOpt(events))
	}
	prober := &stubProber{baseURL: testBaseURL}
	return service.New(
		products, images, providers, prober, testBaseURL, opts...,
	)
}

func TestRemoveBackground(t *testing.T) {
	t.Run("FirstProviderWins", func(t *testing.T) {
		queue := &stubProvider{
			name:    service.HintQueue,
			accepts: true,
			outcome: domain.RemovalOutcome{
				ProcessedLocator: "https://queue.example.com/out.png",
			},
		}
		hosted := &stubProvider{name: service.HintHosted, accepts: true}
		local := &stubProvider{name: service.HintLocal, accepts: true}

		images := new(MockImagesStorage)
		images.On("SetStatus",
			mock.Anything, int64(1), domain.StatusProcessing).Return(nil)
		images.On("CompleteImage",
			mock.Anything, int64(1), "https://queue.example.com/out.png").
			Return(nil)

		events := &stubEvents{}
		s := newOrchestratorService(images, events, queue, hosted, local)

		img := pendingImage(1)
		outcome, err := s.RemoveBackground(t.Context(), img, "")
		require.NoError(t, err)
		assert.Equal(t, service.HintQueue, outcome.Provider)
		assert.Equal(t, "https://queue.example.com/out.png", outcome.ProcessedLocator)
		assert.Equal(t, domain.StatusCompleted, img.Record.Status)
		assert.Equal(t, 1, queue.calls)
		assert.Zero(t, hosted.calls)
		assert.Zero(t, local.calls)

		require.Len(t, events.events, 1)
		assert.Equal(t, domain.StatusCompleted, events.events[0].Status)
		assert.Equal(t, "SKU1", events.events[0].SKU)
	})

	t.Run("UnconfiguredQueueNeverAttempted", func(t *testing.T) {
		queue := &stubProvider{name: service.HintQueue, accepts: false}
		hosted := &stubProvider{
			name:    service.HintHosted,
			accepts: true,
			outcome: domain.RemovalOutcome{
				ProcessedBytes: []byte("png"),
			},
		}

		images := new(MockImagesStorage)
		images.On("SetStatus", mock.Anything, mock.Anything, mock.Anything).
			Return(nil)
		images.On("CompleteImage", mock.Anything, mock.Anything, mock.Anything).
			Return(nil)

		s := newOrchestratorService(images, nil, queue, hosted)

		outcome, err := s.RemoveBackground(t.Context(), pendingImage(1), "")
		require.NoError(t, err)
		assert.Zero(t, queue.calls)
		assert.Equal(t, 1, hosted.calls)
		assert.Equal(t, service.HintHosted, outcome.Provider)
	})

	t.Run("FallsThroughToLocal", func(t *testing.T) {
		queue := &stubProvider{
			name: service.HintQueue, accepts: true,
			err: domain.ErrProviderFailure,
		}
		hosted := &stubProvider{
			name: service.HintHosted, accepts: true,
			err: domain.ErrProviderFailure,
		}
		local := &stubProvider{
			name: service.HintLocal, accepts: true,
			outcome: domain.RemovalOutcome{
				ProcessedBytes: []byte("jpegdata"),
				Opaque:         true,
			},
		}

		images := new(MockImagesStorage)
		images.On("SetStatus",
			mock.Anything, int64(42), domain.StatusProcessing).Return(nil)
		images.On("CompleteImage", mock.Anything, int64(42), mock.Anything).
			Return(nil)

		s := newOrchestratorService(images, nil, queue, hosted, local)

		img := pendingImage(42)
		outcome, err := s.RemoveBackground(t.Context(), img, "")
		require.NoError(t, err)
		assert.Equal(t, service.HintLocal, outcome.Provider)
		assert.Contains(t, outcome.ProcessedLocator, "data:image/jpeg;base64,")
		assert.Equal(t, domain.StatusCompleted, img.Record.Status)
		assert.Equal(t, 1, queue.calls)
		assert.Equal(t, 1, hosted.calls)
		assert.Equal(t, 1, local.calls)
	})

	t.Run("AllProvidersFailed", func(t *testing.T) {
		bang := errors.New("rejected")
		queue := &stubProvider{name: service.HintQueue, accepts: true, err: bang}
		hosted := &stubProvider{name: service.HintHosted, accepts: true, err: bang}
		local := &stubProvider{name: service.HintLocal, accepts: true, err: bang}

		images := new(MockImagesStorage)
		images.On("SetStatus",
			mock.Anything, int64(1), domain.StatusProcessing).Return(nil)
		images.On("SetStatus",
			mock.Anything, int64(1), domain.StatusFailed).Return(nil)

		events := &stubEvents{}
		s := newOrchestratorService(images, events, queue, hosted, local)

		img := pendingImage(1)
		_, err := s.RemoveBackground(t.Context(), img, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
		assert.ErrorIs(t, err, bang)
		assert.Equal(t, domain.StatusFailed, img.Record.Status)
		images.AssertNotCalled(t, "CompleteImage",
			mock.Anything, mock.Anything, mock.Anything)

		require.Len(t, events.events, 1)
		assert.Equal(t, domain.StatusFailed, events.events[0].Status)
	})

	t.Run("LocalHintSkipsHosted", func(t *testing.T) {
		queue := &stubProvider{name: service.HintQueue, accepts: false}
		hosted := &stubProvider{name: service.HintHosted, accepts: true}
		local := &stubProvider{
			name: service.HintLocal, accepts: true,
			outcome: domain.RemovalOutcome{ProcessedBytes: []byte("png")},
		}

		images := new(MockImagesStorage)
		images.On("SetStatus", mock.Anything, mock.Anything, mock.Anything).
			Return(nil)
		images.On("CompleteImage", mock.Anything, mock.Anything, mock.Anything).
			Return(nil)

		s := newOrchestratorService(images, nil, queue, hosted, local)

		outcome, err := s.RemoveBackground(
			t.Context(), pendingImage(1), service.HintLocal,
		)
		require.NoError(t, err)
		assert.Equal(t, service.HintLocal, outcome.Provider)
		assert.Zero(t, hosted.calls)
	})

	t.Run("InlineImageNotPersisted", func(t *testing.T) {
		queue := &stubProvider{name: service.HintQueue, accepts: false}
		hosted := &stubProvider{
			name: service.HintHosted, accepts: true,
			outcome: domain.RemovalOutcome{ProcessedBytes: []byte("png")},
		}

		images := new(MockImagesStorage)
		s := newOrchestratorService(images, nil, queue, hosted)

		img := domain.CanonicalImage{Inline: []byte("raw")}
		outcome, err := s.RemoveBackground(t.Context(), img, "")
		require.NoError(t, err)
		assert.Zero(t, queue.calls)
		assert.Contains(t, outcome.ProcessedLocator, "data:image/png;base64,")
		images.AssertNotCalled(t, "CompleteImage",
			mock.Anything, mock.Anything, mock.Anything)
		images.AssertNotCalled(t, "SetStatus",
			mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RetryAfterFailure", func(t *testing.T) {
		local := &stubProvider{
			name: service.HintLocal, accepts: true,
			outcome: domain.RemovalOutcome{ProcessedBytes: []byte("png")},
		}

		images := new(MockImagesStorage)
		images.On("SetStatus",
			mock.Anything, int64(1), domain.StatusProcessing).Return(nil)
		images.On("CompleteImage", mock.Anything, int64(1), mock.Anything).
			Return(nil)

		s := newOrchestratorService(images, nil, local)

		img := domain.CanonicalImage{Record: &domain.ImageRecord{
			ID:              1,
			ProductID:       7,
			OriginalLocator: "https://uploads.example.com/native.jpg",
			Status:          domain.StatusFailed,
		}}
		_, err := s.RemoveBackground(t.Context(), img, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, img.Record.Status)
	})

	t.Run("CompletedIsTerminal", func(t *testing.T) {
		local := &stubProvider{name: service.HintLocal, accepts: true}
		images := new(MockImagesStorage)
		s := newOrchestratorService(images, nil, local)

		img := domain.CanonicalImage{Record: &domain.ImageRecord{
			ID:     1,
			Status: domain.StatusCompleted,
		}}
		_, err := s.RemoveBackground(t.Context(), img, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Zero(t, local.calls)
	})
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to domain.ImageStatus
		ok       bool
	}{
		{domain.StatusPending, domain.StatusProcessing, true},
		{domain.StatusProcessing, domain.StatusCompleted, true},
		{domain.StatusProcessing, domain.StatusFailed, true},
		{domain.StatusFailed, domain.StatusProcessing, true},
		{domain.StatusPending, domain.StatusCompleted, false},
		{domain.StatusPending, domain.StatusFailed, false},
		{domain.StatusCompleted, domain.StatusProcessing, false},
		{domain.StatusCompleted, domain.StatusFailed, false},
		{domain.StatusFailed, domain.StatusCompleted, false},
	}
	for _, c := range cases {
		t.Run(string(c.from)+"->"+string(c.to), func(t *testing.T) {
			assert.Equal(t, c.ok, c.from.CanTransition(c.to))
		})
	}
}
