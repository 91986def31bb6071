package service

import (
	"blurrer/api/model"
	"blurrer/config"
	"blurrer/converter"
	apperrors "blurrer/shared/errors"
	"blurrer/shared/log"
	tracing "blurrer/shared/trace"
	"blurrer/storage"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"path/filepath"
	"strings"
	"time"
)

const sideEffectTimeout = 5 * time.Second

type BlurService struct {
	config *config.Config

	engine converter.Engine
	spool  *storage.Spool

	cache   ResultCache
	archive Archive
	journal Journal

	encodedJob    converter.Job
	defaultFormat converter.Format

	tracer trace.Tracer
	logger *zap.Logger
}

type Option func(*BlurService)

func WithCache(c ResultCache) Option {
	return func(s *BlurService) { s.cache = c }
}

func WithArchive(a Archive) Option {
	return func(s *BlurService) { s.archive = a }
}

func WithJournal(j Journal) Option {
	return func(s *BlurService) { s.journal = j }
}

// NewBlurService fails when the configured defaults cannot be served by engine.
func NewBlurService(cfg *config.Config, engine converter.Engine, spool *storage.Spool, logger *zap.Logger, opts ...Option) (*BlurService, error) {
	d := cfg.Defaults

	encodedFormat, err := converter.ParseFormat(d.EncodedFormat)
	if err != nil {
		return nil, fmt.Errorf("encoded format: %w", err)
	}
	defaultFormat, err := converter.ParseFormat(d.Format)
	if err != nil {
		return nil, fmt.Errorf("default format: %w", err)
	}
	if !engine.Supports(defaultFormat) {
		return nil, fmt.Errorf("default format %s is not supported by the %s engine", defaultFormat, engine.Name())
	}

	encodedJob := converter.Job{
		Kernel: converter.Kernel{Width: d.EncodedKernelWidth, Height: d.EncodedKernelHeight},
		SigmaX: d.EncodedSigmaX,
		SigmaY: d.EncodedSigmaY,
		Format: encodedFormat,
		Mode:   converter.ReadColor,
	}
	if err := encodedJob.Validate(engine, 0); err != nil {
		return nil, fmt.Errorf("encoded defaults: %w", err)
	}

	s := &BlurService{
		config:        cfg,
		engine:        engine,
		spool:         spool,
		encodedJob:    encodedJob,
		defaultFormat: defaultFormat,
		tracer:        otel.Tracer(tracing.TracerName),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *BlurService) EngineName() string {
	return s.engine.Name()
}

// BlurEncoded blurs a base64 encoded image in memory and returns the result
// as base64 text in the encoded-body format (PNG unless configured otherwise).
func (s *BlurService) BlurEncoded(ctx context.Context, requestID, payload string) (out string, err error) {
	ctx, span := s.tracer.Start(ctx, "BlurService.BlurEncoded")
	defer span.End()

	job := s.encodedJob
	entry := s.newEntry(requestID, model.TransferEncoded, job)
	defer s.finish(ctx, span, &entry, time.Now(), &err)

	data, err := DecodeBase64(payload)
	if err != nil {
		return "", err
	}
	entry.InputBytes = int64(len(data))

	sum := sha256.Sum256(data)
	res, err := s.run(ctx, requestID, converter.Source{Data: data}, hex.EncodeToString(sum[:]), job, &entry)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(res.Body), nil
}

// BlurUpload persists the upload to its own spool file, blurs it from disk
// and removes the file before returning.
func (s *BlurService) BlurUpload(ctx context.Context, requestID string, req model.UploadRequest) (result *model.BlurResult, err error) {
	ctx, span := s.tracer.Start(ctx, "BlurService.BlurUpload")
	defer span.End()

	job, err := s.uploadJob(req)
	entry := s.newEntry(requestID, model.TransferMultipart, job)
	defer s.finish(ctx, span, &entry, time.Now(), &err)
	if err != nil {
		return nil, err
	}

	if req.Image == nil {
		return nil, apperrors.New(apperrors.KindInput, "upload", "the image file is required")
	}

	f, err := req.Image.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInput, "upload", "the uploaded image cannot be read", err)
	}
	defer f.Close()

	tmp, err := s.spool.Persist(ctx, requestID, f, filepath.Ext(req.Image.Filename))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "persist", "failed to persist the upload", err)
	}
	defer tmp.Release()

	entry.InputBytes = tmp.Size
	if tmp.Size == 0 {
		return nil, apperrors.New(apperrors.KindInput, "upload", "the uploaded image is empty")
	}

	res, err := s.run(ctx, requestID, converter.Source{Path: tmp.Path}, tmp.Digest, job, &entry)
	if err != nil {
		return nil, err
	}

	return &model.BlurResult{
		ContentType: job.Format.ContentType(),
		Width:       res.Width,
		Height:      res.Height,
		Cached:      entry.Cached,
		Body:        res.Body,
	}, nil
}

func (s *BlurService) uploadJob(req model.UploadRequest) (converter.Job, error) {
	job := converter.Job{
		Kernel: converter.Kernel{Width: req.KernelWidth, Height: req.KernelHeight},
		SigmaX: req.SigmaX,
		SigmaY: s.config.Defaults.SigmaY,
		Format: s.defaultFormat,
		Mode:   converter.ReadUnchanged,
	}
	if req.SigmaY != nil {
		job.SigmaY = *req.SigmaY
	}
	if req.Format != nil && strings.TrimSpace(*req.Format) != "" {
		f, err := converter.ParseFormat(*req.Format)
		if err != nil {
			return job, apperrors.Wrap(apperrors.KindParams, "format", fmt.Sprintf("unsupported output format %q", *req.Format), err)
		}
		job.Format = f
	}

	return job, job.Validate(s.engine, s.config.MaxKernelSize)
}

func (s *BlurService) run(ctx context.Context, requestID string, src converter.Source, digest string, job converter.Job, entry *model.JournalEntry) (*converter.Result, error) {
	logger := log.WithRequestID(log.LoggerWithTrace(ctx, s.logger), requestID)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("blur.kernel", job.Kernel.String()),
		attribute.Float64("blur.sigma_x", job.SigmaX),
		attribute.Float64("blur.sigma_y", job.SigmaY),
		attribute.String("blur.format", job.Format.String()),
		attribute.String("blur.engine", s.engine.Name()),
	)

	key := CacheKey(digest, job)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
		if ok {
			logger.Debug("Cache hit", zap.String("key", key))
			entry.Cached = true
			entry.OutputBytes = len(cached.Body)
			entry.Width, entry.Height = cached.Width, cached.Height
			return cached, nil
		}
	}

	res, err := s.engine.Convert(ctx, src, job)
	if err != nil {
		return nil, err
	}
	entry.OutputBytes = len(res.Body)
	entry.Width, entry.Height = res.Width, res.Height

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Set(sideCtx, key, res); err != nil {
			logger.Warn("Cache store failed", zap.Error(err))
		}
	}
	if s.archive != nil {
		if objectKey, err := s.archive.Store(sideCtx, requestID, job.Format, res.Body); err != nil {
			logger.Warn("Archive store failed", zap.Error(err))
		} else {
			logger.Debug("Archived result", zap.String("key", objectKey))
		}
	}

	return res, nil
}

func (s *BlurService) newEntry(requestID string, transfer model.Transfer, job converter.Job) model.JournalEntry {
	return model.JournalEntry{
		RequestID:    requestID,
		Transfer:     transfer,
		Engine:       s.engine.Name(),
		KernelWidth:  job.Kernel.Width,
		KernelHeight: job.Kernel.Height,
		SigmaX:       job.SigmaX,
		SigmaY:       job.SigmaY,
		Format:       job.Format.String(),
	}
}

func (s *BlurService) finish(ctx context.Context, span trace.Span, entry *model.JournalEntry, start time.Time, errp *error) {
	logger := log.WithRequestID(log.LoggerWithTrace(ctx, s.logger), entry.RequestID)

	entry.CreatedAt = start.UTC()
	entry.Duration = time.Since(start).Milliseconds()

	if err := *errp; err != nil {
		kind := apperrors.KindOf(err)
		entry.ErrorKind = string(kind)
		entry.Error = err.Error()

		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))

		if kind == apperrors.KindInternal {
			logger.Error("Blur failed", zap.String("transfer", string(entry.Transfer)), zap.Error(err))
		} else {
			logger.Info("Blur rejected", zap.String("transfer", string(entry.Transfer)), zap.String("kind", string(kind)), zap.Error(err))
		}
	} else {
		logger.Debug("Blur done",
			zap.String("transfer", string(entry.Transfer)),
			zap.Int("width", entry.Width),
			zap.Int("height", entry.Height),
			zap.Bool("cached", entry.Cached),
			zap.Int64("duration_ms", entry.Duration),
		)
	}

	if s.journal == nil {
		return
	}

	journalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.journal.Record(journalCtx, *entry); err != nil {
		logger.Warn("Journal record failed", zap.Error(err))
	}
}

// DecodeBase64 accepts padded or unpadded, standard or URL-safe base64, with
// an optional data URL prefix. Whitespace is ignored.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)

	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ";base64,"); i >= 0 {
			payload = payload[i+len(";base64,"):]
		}
	}

	if payload == "" {
		return nil, apperrors.New(apperrors.KindInput, "base64", "the request body is empty")
	}

	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}

	return nil, apperrors.Wrap(apperrors.KindInput, "base64", "the request body is not valid base64", lastErr)
}
