package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"codebattle/internal/common/mq"
	"codebattle/internal/game/model"
	usermodel "codebattle/internal/user/model"
	"codebattle/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	eventHeaderType    = "event"
	eventMatchFinished = "match.finished"
	archiveContentType = "application/zstd"
)

var archiveEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

// onWin schedules the follow-ups of a recorded win. None of them can undo it.
func (s *GameService) onWin(ctx context.Context, input SubmitInput, problemID string) {
	winner := winnerOf(input.UserID)
	if s.stats != nil && !usermodel.IsGuest(winner) {
		s.schedule(ctx, "record_win", func(taskCtx context.Context) error {
			_, err := s.stats.RecordWin(taskCtx, winner)
			return err
		})
	}
	if s.events != nil {
		event := model.MatchFinishedEvent{
			RoomID:     input.RoomID,
			Winner:     winner,
			ProblemID:  problemID,
			Language:   input.Language,
			FinishedAt: s.now(),
		}
		s.schedule(ctx, "publish_match_finished", func(taskCtx context.Context) error {
			return s.publishFinished(taskCtx, event)
		})
	}
}

func (s *GameService) publishFinished(ctx context.Context, event model.MatchFinishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal match finished event: %w", err)
	}
	msg := mq.NewMessage(event.RoomID, payload)
	msg.SetHeader(eventHeaderType, eventMatchFinished)

	ctxMQ := withTimeout(ctx, s.timeouts.MQ)
	defer ctxMQ.cancel()
	return s.events.Publish(ctxMQ.ctx, s.eventTopic, msg)
}

// archiveSubmission stores a zstd compressed JSON record of a ranked submission.
func (s *GameService) archiveSubmission(ctx context.Context, input SubmitInput, problemID string, out *model.SubmitResult) {
	if s.archive == nil {
		return
	}
	record := model.SubmissionArchive{
		RoomID:      input.RoomID,
		UserID:      winnerOf(input.UserID),
		ProblemID:   problemID,
		Language:    input.Language,
		SourceCode:  input.SourceCode,
		Outcome:     out.Outcome,
		Results:     out.Results,
		IsWin:       out.IsWin,
		Error:       out.Error,
		SubmittedAt: s.now(),
	}
	s.schedule(ctx, "archive_submission", func(taskCtx context.Context) error {
		return s.putArchive(taskCtx, record)
	})
}

func (s *GameService) putArchive(ctx context.Context, record model.SubmissionArchive) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal submission archive: %w", err)
	}
	compressed := archiveEncoder.EncodeAll(payload, nil)
	key := archiveKey(s.archivePrefix, record)

	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	if err := s.archive.PutObject(ctxStorage.ctx, s.archiveBucket, key, bytes.NewReader(compressed), int64(len(compressed)), archiveContentType); err != nil {
		return fmt.Errorf("put submission archive %s: %w", key, err)
	}
	logger.Debug(ctx, "submission archived", zap.String("object_key", key), zap.Int("bytes", len(compressed)))
	return nil
}

// archiveKey lays objects out as prefix/room/user/timestamp-id.json.zst.
func archiveKey(prefix string, record model.SubmissionArchive) string {
	name := fmt.Sprintf("%s-%s.json.zst", record.SubmittedAt.UTC().Format("20060102T150405"), uuid.NewString()[:8])
	return path.Join(prefix, record.RoomID, record.UserID, name)
}

// schedule hands fn to the task runner, or runs it inline when there is none.
func (s *GameService) schedule(ctx context.Context, name string, fn func(context.Context) error) {
	if s.tasks != nil && s.tasks.Go(ctx, name, fn) {
		return
	}
	inlineCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := fn(inlineCtx); err != nil {
		logger.Warn(ctx, "side effect failed", zap.String("task", name), zap.Error(err))
	}
}
