package wizard

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deal-analyzer-client/internal/api"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/models"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) CreateDeal(ctx context.Context, in models.DealInput) api.Result[models.Deal] {
	args := m.Called(ctx, in)
	return args.Get(0).(api.Result[models.Deal])
}

func (m *mockBackend) UploadDocument(ctx context.Context, dealID int64, kind models.DocumentKind, fileName string, r io.Reader) api.Result[models.Document] {
	args := m.Called(ctx, dealID, kind, fileName, r)
	return args.Get(0).(api.Result[models.Document])
}

func (m *mockBackend) AnalyzeDeal(ctx context.Context, dealID int64) api.Result[models.AnalysisResult] {
	args := m.Called(ctx, dealID)
	return args.Get(0).(api.Result[models.AnalysisResult])
}

func validForm() models.DealInput {
	return models.DealInput{
		Address:      "123 Main St",
		City:         "Atlanta",
		State:        "GA",
		ZipCode:      "30309",
		PropertyType: models.PropertyMultifamily,
		AskingPrice:  decimal.NewFromInt(2400000),
	}
}

func newMachine(t *testing.T) (*Machine, *mockBackend, *Recorder) {
	t.Helper()
	be := &mockBackend{}
	rec := &Recorder{}
	return New(be, rec, logger.NewTestLogger(t), nil), be, rec
}

// atDocs drives m to DocsPending for deal 7.
func atDocs(t *testing.T, m *Machine, be *mockBackend) {
	t.Helper()
	be.On("CreateDeal", mock.Anything, mock.Anything).Return(api.Result[models.Deal]{Data: models.Deal{ID: 7}}).Once()
	_, err := m.SubmitIntake(context.Background(), validForm())
	require.NoError(t, err)
	require.NoError(t, m.Advance())
	require.Equal(t, DocsPending, m.State())
}

func uploadOK(kind models.DocumentKind) api.Result[models.Document] {
	return api.Result[models.Document]{Data: models.Document{ID: 50, Deal: 7, DocType: kind}}
}

func saveBoth(t *testing.T, m *Machine, be *mockBackend) {
	t.Helper()
	for _, k := range models.DocumentKinds {
		be.On("UploadDocument", mock.Anything, int64(7), k, mock.Anything, mock.Anything).Return(uploadOK(k)).Once()
		require.NoError(t, m.StageDocument(k, string(k)+".csv", []byte("data")))
		require.NoError(t, m.SaveDocument(context.Background(), k))
	}
}

// ==========================
// Intake
// ==========================

func TestSubmitIntake_ValidationStopsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*models.DealInput)
		field string
		want  string
	}{
		{"missing address", func(f *models.DealInput) { f.Address = "  " }, "address", "Street address is required"},
		{"missing city", func(f *models.DealInput) { f.City = "" }, "city", "City is required"},
		{"missing state", func(f *models.DealInput) { f.State = "" }, "state", "State is required"},
		{"missing zip", func(f *models.DealInput) { f.ZipCode = "" }, "zip_code", "ZIP code is required"},
		{"missing price", func(f *models.DealInput) { f.AskingPrice = decimal.Zero }, "asking_price", "Asking price is required"},
		{"negative price", func(f *models.DealInput) { f.AskingPrice = decimal.NewFromInt(-5) }, "asking_price", "Price must be greater than 0"},
		{"unknown property type", func(f *models.DealInput) { f.PropertyType = "castle" }, "property_type", "Select a valid property type"},
		{"missing property type", func(f *models.DealInput) { f.PropertyType = "" }, "property_type", "Property type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, be, _ := newMachine(t)
			form := validForm()
			tt.edit(&form)

			_, err := m.SubmitIntake(context.Background(), form)
			require.Error(t, err)
			stdErr := errors.AsStandardError(err)
			assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
			assert.Equal(t, tt.want, stdErr.Fields[tt.field])

			v := m.View()
			assert.Equal(t, IntakePending, v.State)
			assert.Equal(t, form, v.Form)
			assert.Equal(t, tt.want, v.FieldErrors[tt.field])
			be.AssertNotCalled(t, "CreateDeal", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitIntake_Success(t *testing.T) {
	m, be, rec := newMachine(t)
	deal := models.Deal{ID: 7, Address: "123 Main St", FetchedData: &models.FetchedData{CapRate: 0.072}}
	be.On("CreateDeal", mock.Anything, validForm()).Return(api.Result[models.Deal]{Data: deal}).Once()

	got, err := m.SubmitIntake(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)

	v := m.View()
	assert.Equal(t, IntakeComplete, v.State)
	assert.Equal(t, 1, v.Step)
	require.NotNil(t, v.Deal)
	assert.Equal(t, int64(7), v.Deal.ID)
	assert.True(t, v.CanAdvance)
	assert.Nil(t, v.Err)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, Notification{Level: LevelSuccess, Message: "Property data fetched successfully"}, last)
	be.AssertExpectations(t)
}

func TestSubmitIntake_FailureKeepsForm(t *testing.T) {
	m, be, rec := newMachine(t)
	apiErr := errors.NewAPIError("createDeal", 500, `{"detail":"boom"}`)
	be.On("CreateDeal", mock.Anything, mock.Anything).Return(api.Result[models.Deal]{Err: apiErr}).Once()

	_, err := m.SubmitIntake(context.Background(), validForm())
	require.Error(t, err)

	v := m.View()
	assert.Equal(t, IntakePending, v.State)
	assert.Equal(t, validForm(), v.Form)
	assert.Equal(t, apiErr, v.Err)
	assert.Nil(t, v.Deal)
	last, _ := rec.Last()
	assert.Equal(t, LevelError, last.Level)

	// The same form can be resubmitted.
	be.On("CreateDeal", mock.Anything, mock.Anything).Return(api.Result[models.Deal]{Data: models.Deal{ID: 9}}).Once()
	_, err = m.SubmitIntake(context.Background(), v.Form)
	require.NoError(t, err)
	assert.Equal(t, IntakeComplete, m.State())
}

func TestSubmitIntake_RejectedOutsideIntake(t *testing.T) {
	m, be, _ := newMachine(t)
	atDocs(t, m, be)

	_, err := m.SubmitIntake(context.Background(), validForm())
	assert.ErrorIs(t, err, errors.ErrTransition)
	be.AssertNumberOfCalls(t, "CreateDeal", 1)
}

// ==========================
// Documents and advancing
// ==========================

func TestAdvance_RequiresBothDocumentsSaved(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, m *Machine, be *mockBackend)
	}{
		{"nothing staged", func(*testing.T, *Machine, *mockBackend) {}},
		{"both staged, none saved", func(t *testing.T, m *Machine, _ *mockBackend) {
			require.NoError(t, m.StageDocument(models.DocT12, "t12.csv", nil))
			require.NoError(t, m.StageDocument(models.DocRentRoll, "rr.csv", nil))
		}},
		{"only t12 saved", func(t *testing.T, m *Machine, be *mockBackend) {
			be.On("UploadDocument", mock.Anything, int64(7), models.DocT12, "t12.csv", mock.Anything).Return(uploadOK(models.DocT12)).Once()
			require.NoError(t, m.StageDocument(models.DocT12, "t12.csv", nil))
			require.NoError(t, m.SaveDocument(context.Background(), models.DocT12))
		}},
		{"rent roll failed", func(t *testing.T, m *Machine, be *mockBackend) {
			be.On("UploadDocument", mock.Anything, int64(7), models.DocT12, mock.Anything, mock.Anything).Return(uploadOK(models.DocT12)).Once()
			be.On("UploadDocument", mock.Anything, int64(7), models.DocRentRoll, mock.Anything, mock.Anything).
				Return(api.Result[models.Document]{Err: errors.NewAPIError("uploadDocument", 400, "")}).Once()
			require.NoError(t, m.StageDocument(models.DocT12, "t12.csv", nil))
			require.NoError(t, m.SaveDocument(context.Background(), models.DocT12))
			require.NoError(t, m.StageDocument(models.DocRentRoll, "rr.csv", nil))
			require.Error(t, m.SaveDocument(context.Background(), models.DocRentRoll))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, be, _ := newMachine(t)
			atDocs(t, m, be)
			tt.setup(t, m, be)

			before := m.View()
			assert.False(t, before.CanAdvance)

			err := m.Advance()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodePreconditionFailed, errors.AsStandardError(err).Code)
			assert.Equal(t, before, m.View())
		})
	}
}

func TestAdvance_BothSavedReachesAnalysis(t *testing.T) {
	m, be, rec := newMachine(t)
	atDocs(t, m, be)
	saveBoth(t, m, be)

	assert.True(t, m.View().CanAdvance)
	require.NoError(t, m.Advance())
	assert.Equal(t, DocsComplete, m.State())
	require.NoError(t, m.Advance())
	assert.Equal(t, AnalysisReady, m.State())
	assert.Equal(t, 3, m.View().Step)

	var msgs []string
	for _, n := range rec.All() {
		msgs = append(msgs, n.Message)
	}
	assert.Contains(t, msgs, "T12 saved successfully")
	assert.Contains(t, msgs, "Rent Roll saved successfully")
}

func TestSaveDocument_TouchesOnlyItsSlot(t *testing.T) {
	m, be, rec := newMachine(t)
	atDocs(t, m, be)

	be.On("UploadDocument", mock.Anything, int64(7), models.DocT12, "t12.csv", mock.Anything).Return(uploadOK(models.DocT12)).Once()
	require.NoError(t, m.StageDocument(models.DocT12, "t12.csv", []byte("a")))
	require.NoError(t, m.SaveDocument(context.Background(), models.DocT12))

	be.On("UploadDocument", mock.Anything, int64(7), models.DocRentRoll, "rr.csv", mock.Anything).
		Return(api.Result[models.Document]{Err: errors.NewAPIError("uploadDocument", 500, "")}).Once()
	require.NoError(t, m.StageDocument(models.DocRentRoll, "rr.csv", []byte("b")))
	require.Error(t, m.SaveDocument(context.Background(), models.DocRentRoll))

	v := m.View()
	require.Len(t, v.Slots, 2)
	assert.Equal(t, Saved, v.Slots[0].Status)
	require.NotNil(t, v.Slots[0].Document)
	assert.Equal(t, Failed, v.Slots[1].Status)
	require.NotNil(t, v.Slots[1].Err)
	assert.Equal(t, "rr.csv", v.Slots[1].FileName)

	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: LevelError, Message: "Failed to upload Rent Roll"}, last)

	// A failed slot can be retried without restaging.
	be.On("UploadDocument", mock.Anything, int64(7), models.DocRentRoll, "rr.csv", mock.Anything).Return(uploadOK(models.DocRentRoll)).Once()
	require.NoError(t, m.SaveDocument(context.Background(), models.DocRentRoll))
	assert.True(t, m.View().CanAdvance)
}

func TestSaveDocument_WithoutDealMakesNoRequest(t *testing.T) {
	m, be, rec := newMachine(t)
	require.NoError(t, m.StageDocument(models.DocT12, "t12.csv", nil))

	err := m.SaveDocument(context.Background(), models.DocT12)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePreconditionFailed, errors.AsStandardError(err).Code)
	last, _ := rec.Last()
	assert.Equal(t, "Deal ID is not set. Please create a deal first.", last.Message)
	be.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveDocument_UnstagedSlotRejected(t *testing.T) {
	m, be, _ := newMachine(t)
	atDocs(t, m, be)

	err := m.SaveDocument(context.Background(), models.DocT12)
	assert.ErrorIs(t, err, errors.ErrTransition)
	be.AssertNotCalled(t, "UploadDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStageDocument_Validation(t *testing.T) {
	m, _, _ := newMachine(t)
	assert.ErrorIs(t, m.StageDocument("lease", "x.pdf", nil), errors.ErrValidation)
	assert.ErrorIs(t, m.StageDocument(models.DocT12, "", nil), errors.ErrValidation)
}

func TestBack(t *testing.T) {
	m, be, _ := newMachine(t)
	assert.ErrorIs(t, m.Back(), errors.ErrTransition)

	atDocs(t, m, be)
	require.NoError(t, m.Back())
	assert.Equal(t, IntakeComplete, m.State())
	require.NoError(t, m.Advance())
	assert.Equal(t, DocsPending, m.State())
}

// ==========================
// Analysis
// ==========================

func TestStartAnalysis_WithoutDealMakesNoRequest(t *testing.T) {
	tests := []struct {
		name string
		make func(t *testing.T, be *mockBackend, rec *Recorder) *Machine
	}{
		{"fresh wizard", func(t *testing.T, be *mockBackend, rec *Recorder) *Machine {
			return New(be, rec, logger.NewTestLogger(t), nil)
		}},
		{"dialog without deal id", func(t *testing.T, be *mockBackend, rec *Recorder) *Machine {
			return NewForDeal(models.Deal{}, be, rec, logger.NewTestLogger(t), nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be, rec := &mockBackend{}, &Recorder{}
			m := tt.make(t, be, rec)
			before := m.State()

			_, err := m.StartAnalysis(context.Background())
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodePreconditionFailed, errors.AsStandardError(err).Code)
			assert.Equal(t, before, m.State())
			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, Notification{Level: LevelError, Message: "Deal ID is not set. Please create a deal first."}, last)
			be.AssertNotCalled(t, "AnalyzeDeal", mock.Anything, mock.Anything)
		})
	}
}

func TestStartAnalysis_FailureThenManualRetry(t *testing.T) {
	be, rec := &mockBackend{}, &Recorder{}
	m := NewForDeal(models.Deal{ID: 7}, be, rec, logger.NewTestLogger(t), nil)
	require.Equal(t, AnalysisReady, m.State())

	be.On("AnalyzeDeal", mock.Anything, int64(7)).
		Return(api.Result[models.AnalysisResult]{Err: errors.NewAPIError("analyzeDeal", 502, "")}).Once()
	_, err := m.StartAnalysis(context.Background())
	require.Error(t, err)

	v := m.View()
	assert.Equal(t, AnalysisReady, v.State)
	require.NotNil(t, v.Err)
	assert.Nil(t, v.Result)
	last, _ := rec.Last()
	assert.Equal(t, Notification{Level: LevelError, Message: "Failed to analyze deal"}, last)
	be.AssertNumberOfCalls(t, "AnalyzeDeal", 1)

	irr := 0.14
	be.On("AnalyzeDeal", mock.Anything, int64(7)).
		Return(api.Result[models.AnalysisResult]{Data: models.AnalysisResult{Deal: 7, CapRate: 0.072, IRR: &irr, PassStatus: true}}).Once()
	result, err := m.StartAnalysis(context.Background())
	require.NoError(t, err)
	assert.True(t, result.PassStatus)

	v = m.View()
	assert.Equal(t, AnalysisComplete, v.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, "PASS", v.Result.Verdict())
	assert.Nil(t, v.Err)
	last, _ = rec.Last()
	assert.Equal(t, Notification{Level: LevelSuccess, Message: "Deal analysis completed successfully"}, last)
	be.AssertNumberOfCalls(t, "AnalyzeDeal", 2)
}

func TestStartAnalysis_DisabledWhileRunning(t *testing.T) {
	be := &mockBackend{}
	m := NewForDeal(models.Deal{ID: 7}, be, nil, logger.NewTestLogger(t), nil)

	started := make(chan struct{})
	release := make(chan struct{})
	be.On("AnalyzeDeal", mock.Anything, int64(7)).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(api.Result[models.AnalysisResult]{Data: models.AnalysisResult{Deal: 7}}).Once()

	done := make(chan error, 1)
	go func() {
		_, err := m.StartAnalysis(context.Background())
		done <- err
	}()
	<-started

	v := m.View()
	assert.Equal(t, AnalysisRunning, v.State)
	assert.True(t, v.IsAnalyzing)
	_, err := m.StartAnalysis(context.Background())
	assert.ErrorIs(t, err, errors.ErrTransition)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, AnalysisComplete, m.State())
	be.AssertNumberOfCalls(t, "AnalyzeDeal", 1)
}

func TestReset_DropsLateResult(t *testing.T) {
	m, be, rec := newMachine(t)

	started := make(chan struct{})
	release := make(chan struct{})
	be.On("CreateDeal", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(api.Result[models.Deal]{Data: models.Deal{ID: 7}}).Once()

	done := make(chan error, 1)
	go func() {
		_, err := m.SubmitIntake(context.Background(), validForm())
		done <- err
	}()
	<-started
	assert.True(t, m.View().IsSubmitting)

	m.Reset()
	close(release)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return")
	}

	v := m.View()
	assert.Equal(t, IntakePending, v.State)
	assert.Nil(t, v.Deal)
	assert.Equal(t, models.DealInput{}, v.Form)
	assert.Empty(t, rec.All())
}

func TestReset_RestoresInitialConfiguration(t *testing.T) {
	m, be, _ := newMachine(t)
	atDocs(t, m, be)
	saveBoth(t, m, be)

	m.Reset()
	v := m.View()
	assert.Equal(t, IntakePending, v.State)
	assert.Nil(t, v.Deal)
	for _, s := range v.Slots {
		assert.Equal(t, Unstaged, s.Status)
	}

	dialog := NewForDeal(models.Deal{ID: 3}, be, nil, logger.NewTestLogger(t), nil)
	dialog.Reset()
	assert.Equal(t, AnalysisReady, dialog.State())
	assert.Equal(t, int64(3), dialog.View().Deal.ID)
}

func TestState_Step(t *testing.T) {
	tests := []struct {
		state State
		step  int
	}{
		{IntakePending, 1}, {IntakeSubmitting, 1}, {IntakeComplete, 1},
		{DocsPending, 2}, {DocsComplete, 2},
		{AnalysisReady, 3}, {AnalysisRunning, 3}, {AnalysisComplete, 3},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.step, tt.state.Step())
		})
	}
}
