package appointment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"counseling-app-server/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUsers(t *testing.T, db *gorm.DB) (student, counselor models.User) {
	t.Helper()
	student = models.User{Email: "student@test.edu", Role: models.RoleStudent, FirstName: "Sam"}
	counselor = models.User{Email: "counselor@test.edu", Role: models.RoleCounselor, FirstName: "Casey"}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	if err := db.Create(&counselor).Error; err != nil {
		t.Fatalf("seed counselor: %v", err)
	}
	return student, counselor
}

type recordingCloser struct {
	completed  []string
	followedUp [][2]string
}

func (r *recordingCloser) ConversationCompleted(id string) {
	r.completed = append(r.completed, id)
}

func (r *recordingCloser) ConversationFollowedUp(id, successorID string) {
	r.followedUp = append(r.followedUp, [2]string{id, successorID})
}

func newTestLedger(t *testing.T) (*Ledger, *gorm.DB, models.User, models.User, *recordingCloser) {
	t.Helper()
	db := newTestDB(t)
	student, counselor := seedUsers(t, db)
	closer := &recordingCloser{}
	ledger := NewLedger(db, NewAuditor(db), nil)
	ledger.SetCloser(closer)
	return ledger, db, student, counselor, closer
}

func createPending(t *testing.T, ledger *Ledger, student, counselor models.User) *models.Appointment {
	t.Helper()
	appt, err := ledger.Create(CreateRequest{
		StudentID:   student.ID,
		CounselorID: counselor.ID,
		Type:        models.TypeAcademic,
		Mode:        models.ModeOnline,
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Reason:      "exam stress",
		InitiatedBy: models.RoleStudent,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return appt
}

func TestCreateStartsPending(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)

	appt := createPending(t, ledger, student, counselor)
	if appt.Status != models.StatusPending {
		t.Errorf("student-initiated appointment status = %s, want %s", appt.Status, models.StatusPending)
	}

	history, err := ledger.History(appt.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry after creation, got %d", len(history))
	}
	if history[0].OldStatus != nil {
		t.Errorf("creation entry old status = %v, want nil", *history[0].OldStatus)
	}
	if history[0].NewStatus != models.StatusPending {
		t.Errorf("creation entry new status = %s, want %s", history[0].NewStatus, models.StatusPending)
	}
}

func TestCounselorInitiatedStartsPendingConfirmation(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)

	appt, err := ledger.Create(CreateRequest{
		StudentID:   student.ID,
		CounselorID: counselor.ID,
		Type:        models.TypeCareer,
		Mode:        models.ModeInPerson,
		ScheduledAt: time.Now().Add(time.Hour),
		Reason:      "course planning",
		InitiatedBy: models.RoleCounselor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != models.StatusPendingConfirmation {
		t.Errorf("status = %s, want %s", appt.Status, models.StatusPendingConfirmation)
	}
}

func TestCreateValidation(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)

	base := CreateRequest{
		StudentID:   student.ID,
		CounselorID: counselor.ID,
		Type:        models.TypeAcademic,
		Mode:        models.ModeOnline,
		ScheduledAt: time.Now().Add(time.Hour),
		Reason:      "anything",
	}

	past := base
	past.ScheduledAt = time.Now().Add(-time.Minute)
	if _, err := ledger.Create(past); err == nil {
		t.Error("expected ValidationError for past scheduling")
	} else {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %T", err)
		}
	}

	noReason := base
	noReason.Reason = ""
	var verr *ValidationError
	if _, err := ledger.Create(noReason); !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for missing reason, got %v", err)
	}

	ghost := base
	ghost.CounselorID = "00000000-0000-0000-0000-000000000000"
	var nferr *NotFoundError
	if _, err := ledger.Create(ghost); !errors.As(err, &nferr) {
		t.Errorf("expected NotFoundError for unknown counselor, got %v", err)
	}
}

func TestTransitionIllegalEdge(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)
	appt := createPending(t, ledger, student, counselor)

	// Pending cannot jump straight to Completed
	_, err := ledger.Transition(appt.ID, models.StatusCompleted,
		Actor{ID: counselor.ID, Role: models.RoleCounselor}, "")
	var iterr *InvalidTransitionError
	if !errors.As(err, &iterr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if iterr.From != models.StatusPending || iterr.To != models.StatusCompleted {
		t.Errorf("error edge = %s -> %s, want pending -> completed", iterr.From, iterr.To)
	}
}

func TestTerminalStatesAcceptNoTransitions(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := ledger.Transition(appt.ID, models.StatusCompleted, actor, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	for _, next := range []models.AppointmentStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusRejected,
		models.StatusConfirmedReschedule, models.StatusCompleted,
	} {
		var iterr *InvalidTransitionError
		if _, err := ledger.Transition(appt.ID, next, actor, ""); !errors.As(err, &iterr) {
			t.Errorf("completed -> %s: expected InvalidTransitionError, got %v", next, err)
		}
	}
}

func TestTransitionUnknownAppointment(t *testing.T) {
	ledger, _, _, counselor, _ := newTestLedger(t)

	var nferr *NotFoundError
	_, err := ledger.Transition("11111111-1111-1111-1111-111111111111", models.StatusConfirmed,
		Actor{ID: counselor.ID, Role: models.RoleCounselor}, "")
	if !errors.As(err, &nferr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAuditTrailIsValidWalk(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	for _, next := range []models.AppointmentStatus{
		models.StatusConfirmed,
		models.StatusConfirmedReschedule,
		models.StatusCompleted,
	} {
		if _, err := ledger.Transition(appt.ID, next, actor, ""); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	history, err := ledger.History(appt.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(history))
	}
	if history[0].OldStatus != nil {
		t.Errorf("first entry old status should be nil")
	}
	for i := 1; i < len(history); i++ {
		if history[i].OldStatus == nil {
			t.Fatalf("entry %d old status is nil", i)
		}
		if *history[i].OldStatus != history[i-1].NewStatus {
			t.Errorf("entry %d old status %s disagrees with prior new status %s",
				i, *history[i].OldStatus, history[i-1].NewStatus)
		}
	}
	if history[len(history)-1].NewStatus != models.StatusCompleted {
		t.Errorf("final status in trail = %s, want completed", history[len(history)-1].NewStatus)
	}
}

func TestTransitionAtomicityOnAuditFailure(t *testing.T) {
	ledger, db, student, counselor, _ := newTestLedger(t)
	appt := createPending(t, ledger, student, counselor)

	// Corrupt the trail so the audit chain check fails mid-transaction:
	// the appointment still says pending but the last entry says rejected.
	bogus := models.StatusRejected
	entry := models.StatusHistory{
		AppointmentID: appt.ID,
		OldStatus:     &appt.Status,
		NewStatus:     bogus,
		ChangedBy:     counselor.ID,
		ChangedByRole: models.RoleCounselor,
		ChangedAt:     time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("seed bogus entry: %v", err)
	}

	_, err := ledger.Transition(appt.ID, models.StatusConfirmed,
		Actor{ID: counselor.ID, Role: models.RoleCounselor}, "")
	if err == nil {
		t.Fatal("expected transition to fail on broken audit chain")
	}

	// the status write must have rolled back with the audit failure
	var reloaded models.Appointment
	if err := db.First(&reloaded, "id = ?", appt.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusPending {
		t.Errorf("status persisted as %s despite audit failure, want pending", reloaded.Status)
	}
}

func TestFollowUpCompletesAndLinksSuccessor(t *testing.T) {
	ledger, db, student, counselor, closer := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	successor, err := ledger.RequestFollowUp(appt.ID, time.Now().Add(48*time.Hour),
		models.TypePersonal, models.ModeInPerson, actor)
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}

	if successor.Status != models.StatusPendingConfirmation {
		t.Errorf("successor status = %s, want pending_confirmation", successor.Status)
	}
	if successor.ParentID != appt.ID {
		t.Errorf("successor parent = %q, want %q", successor.ParentID, appt.ID)
	}

	var prior models.Appointment
	if err := db.First(&prior, "id = ?", appt.ID).Error; err != nil {
		t.Fatalf("reload prior: %v", err)
	}
	if prior.Status != models.StatusCompleted {
		t.Errorf("prior status = %s, want completed", prior.Status)
	}

	if len(closer.followedUp) != 1 || closer.followedUp[0] != [2]string{appt.ID, successor.ID} {
		t.Errorf("closer not told about follow-up: %v", closer.followedUp)
	}

	// the follow-up edge is terminal for the prior appointment
	var iterr *InvalidTransitionError
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); !errors.As(err, &iterr) {
		t.Errorf("expected prior appointment to be terminal, got %v", err)
	}
}

func TestFollowUpRejectedOnTerminal(t *testing.T) {
	ledger, _, student, counselor, _ := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	if _, err := ledger.Transition(appt.ID, models.StatusRejected, actor, "no availability"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	var iterr *InvalidTransitionError
	_, err := ledger.RequestFollowUp(appt.ID, time.Now().Add(time.Hour),
		models.TypeAcademic, models.ModeOnline, actor)
	if !errors.As(err, &iterr) {
		t.Fatalf("expected InvalidTransitionError on terminal appointment, got %v", err)
	}
}

func TestConfirmOpensSingleGuidanceCase(t *testing.T) {
	ledger, db, student, counselor, _ := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// re-confirmation after a reschedule must not open a second case
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmedReschedule, actor, ""); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); err != nil {
		t.Fatalf("re-confirm: %v", err)
	}

	var count int64
	if err := db.Model(&models.GuidanceCase{}).Where("appointment_id = ?", appt.ID).Count(&count).Error; err != nil {
		t.Fatalf("count cases: %v", err)
	}
	if count != 1 {
		t.Errorf("guidance case count = %d, want 1", count)
	}
}

func TestCompletionNotifiesCloser(t *testing.T) {
	ledger, _, student, counselor, closer := newTestLedger(t)
	actor := Actor{ID: counselor.ID, Role: models.RoleCounselor}

	appt := createPending(t, ledger, student, counselor)
	if _, err := ledger.Transition(appt.ID, models.StatusConfirmed, actor, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := ledger.Transition(appt.ID, models.StatusCompleted, actor, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(closer.completed) != 1 || closer.completed[0] != appt.ID {
		t.Errorf("closer.completed = %v, want [%s]", closer.completed, appt.ID)
	}
}
