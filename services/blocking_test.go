package services

import (
	"context"
	"law_consult_app/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBlockRange_CancelsAffectedConsultations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	other := createLawyer(t, env.DB, "Luis Perez", "family")

	a := insertConsultation(t, env.DB, lawyer.ID, "2025-06-09", models.ConsultationStatusPending)
	b := insertConsultation(t, env.DB, lawyer.ID, "2025-06-09", models.ConsultationStatusConfirmed)
	c := insertConsultation(t, env.DB, lawyer.ID, "2025-06-11", models.ConsultationStatusPending)
	done := insertConsultation(t, env.DB, lawyer.ID, "2025-06-10", models.ConsultationStatusCompleted)
	untouched := insertConsultation(t, env.DB, other.ID, "2025-06-09", models.ConsultationStatusPending)

	result, err := env.Blocking.BlockRange(ctx, lawyerActor(lawyer), lawyer.ID, "2025-06-09", "2025-06-11", "Out of office")
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-06-09", "2025-06-10", "2025-06-11"}, result.BlockedDates)
	assert.Empty(t, result.SkippedDates)
	assert.Len(t, result.Entries, 3)
	assert.Equal(t, 3, result.Cancelled)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, result.CancelledIDs)
	assert.Equal(t, 3, result.NotificationsQueued)
	assert.Equal(t, "3 consultation(s) cancelled, 3 notification(s) queued", result.Message)

	for _, id := range []string{a.ID, b.ID, c.ID} {
		var got models.Consultation
		require.NoError(t, env.DB.First(&got, "id = ?", id).Error)
		assert.Equal(t, models.ConsultationStatusCancelled, got.Status)
		require.NotNil(t, got.CancellationReason)
		assert.Equal(t, "Out of office", *got.CancellationReason)
	}

	var got models.Consultation
	require.NoError(t, env.DB.First(&got, "id = ?", done.ID).Error)
	assert.Equal(t, models.ConsultationStatusCompleted, got.Status)
	require.NoError(t, env.DB.First(&got, "id = ?", untouched.ID).Error)
	assert.Equal(t, models.ConsultationStatusPending, got.Status)

	notices := queuedOfType(t, env.DB, models.NotificationTypeCancellation)
	require.Len(t, notices, 3)
	assert.Contains(t, notices[0].Body, "Out of office")

	var blocked int64
	env.DB.Model(&models.ScheduleEntry{}).Where("lawyer_id = ? AND type = ?", lawyer.ID, models.ScheduleTypeBlocked).Count(&blocked)
	assert.Equal(t, int64(3), blocked)
}

func TestBlockRange_SkipsBlockedDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	actor := lawyerActor(lawyer)

	_, err := env.Blocking.BlockDate(ctx, actor, lawyer.ID, "2025-06-12", "")
	require.NoError(t, err)

	result, err := env.Blocking.BlockRange(ctx, actor, lawyer.ID, "2025-06-10", "2025-06-12", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-10", "2025-06-11"}, result.BlockedDates)
	assert.Equal(t, []string{"2025-06-12"}, result.SkippedDates)
	assert.Equal(t, "no appointments affected", result.Message)
	assert.Zero(t, result.Cancelled)

	_, err = env.Blocking.BlockRange(ctx, actor, lawyer.ID, "2025-06-10", "2025-06-12", "")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Messages, "all dates already blocked")
}

func TestBlockDate_AlreadyBlockedHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	actor := lawyerActor(lawyer)

	_, err := env.Blocking.BlockDate(ctx, actor, lawyer.ID, "2025-06-16", "Trial")
	require.NoError(t, err)

	// A consultation that slipped in (e.g. created by hand) stays as it is
	c := insertConsultation(t, env.DB, lawyer.ID, "2025-06-16", models.ConsultationStatusPending)

	_, err = env.Blocking.BlockDate(ctx, actor, lawyer.ID, "2025-06-16", "Trial again")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Messages, "2025-06-16 is already blocked")

	var got models.Consultation
	require.NoError(t, env.DB.First(&got, "id = ?", c.ID).Error)
	assert.Equal(t, models.ConsultationStatusPending, got.Status)

	assert.Empty(t, queuedOfType(t, env.DB, models.NotificationTypeCancellation))

	var entries int64
	env.DB.Model(&models.ScheduleEntry{}).Where("lawyer_id = ?", lawyer.ID).Count(&entries)
	assert.Equal(t, int64(1), entries)
}

func TestBlockDate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	other := createLawyer(t, env.DB, "Luis Perez", "family")

	_, err := env.Blocking.BlockDate(ctx, lawyerActor(other), lawyer.ID, "2025-06-16", "")
	assert.IsType(t, &AuthorizationError{}, err)

	_, err = env.Blocking.BlockDate(ctx, lawyerActor(lawyer), lawyer.ID, "2025-06-01", "")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Messages, "cannot block dates in the past")

	_, err = env.Blocking.BlockRange(ctx, lawyerActor(lawyer), lawyer.ID, "2025-06-20", "2025-06-10", "")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Messages, "end date must not be before start date")

	_, err = env.Blocking.BlockRange(ctx, lawyerActor(lawyer), lawyer.ID, "2025-06-10", "2026-06-30", "")
	require.ErrorAs(t, err, &validationErr)

	_, err = env.Blocking.BlockDate(ctx, adminActor, "missing", "2025-06-16", "")
	assert.IsType(t, &NotFoundError{}, err)
}

func TestBlockDate_DefaultReason(t *testing.T) {
	env := newTestEnv(t)
	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	c := insertConsultation(t, env.DB, lawyer.ID, "2025-06-16", models.ConsultationStatusConfirmed)

	result, err := env.Blocking.BlockDate(context.Background(), adminActor, lawyer.ID, "2025-06-16", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Cancelled)

	var got models.Consultation
	require.NoError(t, env.DB.First(&got, "id = ?", c.ID).Error)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, DefaultBlockReason, *got.CancellationReason)
}

func TestBlockDate_NotificationFailureDoesNotAbort(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	env.Blocking.Log = zap.New(core)

	lawyer := createLawyer(t, env.DB, "Ana Torres", "family")
	reachable := insertConsultation(t, env.DB, lawyer.ID, "2025-06-16", models.ConsultationStatusPending)
	unreachable := insertConsultation(t, env.DB, lawyer.ID, "2025-06-16", models.ConsultationStatusConfirmed)
	require.NoError(t, env.DB.Model(unreachable).Update("email", "").Error)

	result, err := env.Blocking.BlockDate(context.Background(), lawyerActor(lawyer), lawyer.ID, "2025-06-16", "Trial")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Cancelled)
	assert.Equal(t, 1, result.NotificationsQueued)
	assert.Equal(t, 1, result.NotificationFailures)
	assert.Equal(t, "2 consultation(s) cancelled, 1 notification(s) queued", result.Message)

	for _, id := range []string{reachable.ID, unreachable.ID} {
		var got models.Consultation
		require.NoError(t, env.DB.First(&got, "id = ?", id).Error)
		assert.Equal(t, models.ConsultationStatusCancelled, got.Status)
	}

	notices := queuedOfType(t, env.DB, models.NotificationTypeCancellation)
	require.Len(t, notices, 1)
	assert.Equal(t, reachable.Email, notices[0].Email)

	failures := logs.FilterMessage("failed to queue cancellation notification").All()
	require.Len(t, failures, 1)
	assert.Equal(t, unreachable.ID, failures[0].ContextMap()["consultation_id"])
}
