package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/logging"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

var feedbackCols = []string{"id", "viewer_id", "series_id", "rating", "feedback_text", "feedback_date", "first_name", "last_name", "name"}

func sqlEngagement(t *testing.T) (*EngagementService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := repository.NewSQLStore(db)
	return NewEngagementService(store, NewGate(store), &recorder{}, logging.Discard()), mock
}

// expectOwnedFeedback queues the review lookup and the caller's role read,
// both of which must run on the transaction.
func expectOwnedFeedback(mock sqlmock.Sqlmock, feedbackID, ownerID, callerID uint64, role string) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.id = ?")).WithArgs(feedbackID).
		WillReturnRows(sqlmock.NewRows(feedbackCols).
			AddRow(feedbackID, ownerID, 3, 4, "good", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "Ana", nil, "Dark"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM viewers WHERE id = ?")).WithArgs(callerID).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(role))
}

func TestDeleteFeedbackChecksOwnerInsideTx(t *testing.T) {
	engage, mock := sqlEngagement(t)

	expectOwnedFeedback(mock, 7, 2, 2, "customer")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM feedback WHERE id = ?")).WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, engage.DeleteFeedback(context.Background(), 2, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFeedbackRejectsStrangerAndRollsBack(t *testing.T) {
	engage, mock := sqlEngagement(t)

	expectOwnedFeedback(mock, 7, 2, 9, "employee")
	mock.ExpectRollback()

	err := engage.DeleteFeedback(context.Background(), 9, 7)
	requireKind(t, err, apperr.KindForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFeedbackChecksOwnerInsideTx(t *testing.T) {
	engage, mock := sqlEngagement(t)
	rating := 5

	expectOwnedFeedback(mock, 7, 2, 9, "admin")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE feedback")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.id = ?")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(feedbackCols).
			AddRow(7, 2, 3, 5, "good", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "Ana", nil, "Dark"))
	mock.ExpectCommit()

	out, err := engage.UpdateFeedback(context.Background(), 9, 7, model.FeedbackPatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}
