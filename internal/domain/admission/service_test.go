package admission

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/hms/internal/domain/identity"
	"github.com/vidaplus/hms/internal/domain/ward"
	"github.com/vidaplus/hms/internal/platform/apperr"
)

type mockRepo struct {
	byID    map[uuid.UUID]*Admission
	records map[uuid.UUID][]*Record
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[uuid.UUID]*Admission{}, records: map[uuid.UUID][]*Record{}}
}

func (m *mockRepo) Create(_ context.Context, a *Admission) error {
	for _, existing := range m.byID {
		if existing.BedID == a.BedID && existing.Status == StatusActive {
			return apperr.Conflict("bed is not free")
		}
	}
	a.ID = uuid.New()
	m.byID[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("admission not found")
	}
	return a, nil
}

func (m *mockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) Discharge(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("admission not found")
	}
	now := time.Now().UTC()
	a.Status = StatusDischarged
	a.DischargedAt = &now
	return a, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Admission, int, error) {
	var out []*Admission
	for _, a := range m.byID {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	var out []*Admission
	for _, a := range m.byID {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) AddRecord(_ context.Context, r *Record) error {
	r.ID = uuid.New()
	m.records[r.AdmissionID] = append(m.records[r.AdmissionID], r)
	return nil
}

func (m *mockRepo) ListRecords(_ context.Context, admissionID uuid.UUID) ([]*Record, error) {
	return m.records[admissionID], nil
}

type mockBedStore struct {
	byID map[uuid.UUID]*ward.Bed
}

func (m *mockBedStore) GetByID(_ context.Context, id uuid.UUID) (*ward.Bed, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("bed not found")
	}
	return b, nil
}

func (m *mockBedStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*ward.Bed, error) {
	return m.GetByID(ctx, id)
}

func (m *mockBedStore) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	b, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("bed not found")
	}
	b.Status = status
	return nil
}

type mockRoomStore struct {
	byID map[uuid.UUID]*ward.Room
}

func (m *mockRoomStore) GetByID(_ context.Context, id uuid.UUID) (*ward.Room, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("room not found")
	}
	return r, nil
}

type mockPatientDir struct {
	byID map[uuid.UUID]*identity.Patient
}

func (m *mockPatientDir) GetByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

type mockProfessionalDir struct {
	byID map[uuid.UUID]*identity.Professional
}

func (m *mockProfessionalDir) GetByID(_ context.Context, id uuid.UUID) (*identity.Professional, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("professional not found")
	}
	return p, nil
}

type passTx struct{}

func (passTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc   *Service
	repo  *mockRepo
	beds  *mockBedStore
	rooms *mockRoomStore

	maleRoom   *ward.Room
	femaleRoom *ward.Room
	pedRoom    *ward.Room
	icuRoom    *ward.Room

	malePatient  *identity.Patient
	girlPatient  *identity.Patient
	adultPatient *identity.Patient
	prof         *identity.Professional
}

// now is the fixed reference instant for all age computations in the tests.
var now = time.Date(2025, 7, 7, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		repo:  newMockRepo(),
		beds:  &mockBedStore{byID: map[uuid.UUID]*ward.Bed{}},
		rooms: &mockRoomStore{byID: map[uuid.UUID]*ward.Room{}},
	}

	f.maleRoom = &ward.Room{ID: uuid.New(), Number: "101", Category: ward.CategoryMale, Capacity: 4}
	f.femaleRoom = &ward.Room{ID: uuid.New(), Number: "102", Category: ward.CategoryFemale, Capacity: 4}
	f.pedRoom = &ward.Room{ID: uuid.New(), Number: "103", Category: ward.CategoryPediatric, Capacity: 4}
	f.icuRoom = &ward.Room{ID: uuid.New(), Number: "104", Category: ward.CategoryICUGeneral, Capacity: 4}
	for _, r := range []*ward.Room{f.maleRoom, f.femaleRoom, f.pedRoom, f.icuRoom} {
		f.rooms.byID[r.ID] = r
	}

	f.malePatient = &identity.Patient{
		ID: uuid.New(), Name: "Jo Silva", Gender: identity.GenderMale,
		BirthDate: time.Date(1980, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	f.girlPatient = &identity.Patient{
		ID: uuid.New(), Name: "Bia Costa", Gender: identity.GenderFemale,
		BirthDate: time.Date(2010, 5, 20, 0, 0, 0, 0, time.UTC),
	}
	f.adultPatient = &identity.Patient{
		ID: uuid.New(), Name: "Ana Souza", Gender: identity.GenderFemale,
		BirthDate: time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
	}
	patients := &mockPatientDir{byID: map[uuid.UUID]*identity.Patient{
		f.malePatient.ID: f.malePatient, f.girlPatient.ID: f.girlPatient, f.adultPatient.ID: f.adultPatient,
	}}

	f.prof = &identity.Professional{ID: uuid.New(), Name: "Dr. Lima"}
	profs := &mockProfessionalDir{byID: map[uuid.UUID]*identity.Professional{f.prof.ID: f.prof}}

	f.svc = NewService(f.repo, f.beds, f.rooms, patients, profs, passTx{})
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) addBed(room *ward.Room, status string) *ward.Bed {
	b := &ward.Bed{ID: uuid.New(), RoomID: room.ID, Label: "A", Status: status}
	f.beds.byID[b.ID] = b
	return b
}

func TestAdmitHappyPath(t *testing.T) {
	f := newFixture()
	bed := f.addBed(f.maleRoom, ward.BedFree)

	adm, err := f.svc.Admit(context.Background(), AdmitInput{
		PatientID: f.malePatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if adm.Status != StatusActive {
		t.Fatalf("status = %s", adm.Status)
	}
	if bed.Status != ward.BedOccupied {
		t.Fatalf("bed status = %s, want OCCUPIED", bed.Status)
	}
}

func TestAdmitNotFoundOrder(t *testing.T) {
	f := newFixture()
	bed := f.addBed(f.icuRoom, ward.BedFree)
	ctx := context.Background()

	_, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.malePatient.ID, BedID: uuid.New(), ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindNotFound || !strings.Contains(err.Error(), "bed") {
		t.Fatalf("unknown bed: err = %v", err)
	}

	_, err = f.svc.Admit(ctx, AdmitInput{
		PatientID: uuid.New(), BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindNotFound || !strings.Contains(err.Error(), "patient") {
		t.Fatalf("unknown patient: err = %v", err)
	}

	_, err = f.svc.Admit(ctx, AdmitInput{
		PatientID: f.malePatient.ID, BedID: bed.ID, ProfessionalID: uuid.New(),
	})
	if apperr.KindOf(err) != apperr.KindNotFound || !strings.Contains(err.Error(), "professional") {
		t.Fatalf("unknown professional: err = %v", err)
	}
}

func TestAdmitBedNotFreeBeforeCompatibility(t *testing.T) {
	f := newFixture()
	// Occupied bed in a MALE room, female patient: the caller must see
	// "bed is not free", not the gender mismatch.
	bed := f.addBed(f.maleRoom, ward.BedOccupied)

	_, err := f.svc.Admit(context.Background(), AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.KindOf(err))
	}
	if err.Error() != "bed is not free" {
		t.Fatalf("message = %q, want the bed-not-free message", err.Error())
	}
}

func TestAdmitGenderRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	maleBed := f.addBed(f.maleRoom, ward.BedFree)
	_, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: maleBed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindConflict || !strings.Contains(err.Error(), "male") {
		t.Fatalf("female into MALE room: err = %v", err)
	}

	femaleBed := f.addBed(f.femaleRoom, ward.BedFree)
	_, err = f.svc.Admit(ctx, AdmitInput{
		PatientID: f.malePatient.ID, BedID: femaleBed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("male into FEMALE room: err = %v", err)
	}

	if _, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: femaleBed.ID, ProfessionalID: f.prof.ID,
	}); err != nil {
		t.Fatalf("female into FEMALE room: %v", err)
	}
}

func TestAdmitPediatricAgeRule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	bed := f.addBed(f.pedRoom, ward.BedFree)
	_, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindConflict || !strings.Contains(err.Error(), "under 18") {
		t.Fatalf("adult into PEDIATRIC room: err = %v", err)
	}

	if _, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.girlPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	}); err != nil {
		t.Fatalf("child into PEDIATRIC room: %v", err)
	}
}

func TestAdmitPediatricBoundaryAge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Turns 18 exactly on the reference day: no longer pediatric.
	justEighteen := &identity.Patient{
		ID: uuid.New(), Name: "Leo", Gender: identity.GenderMale,
		BirthDate: time.Date(2007, 7, 7, 0, 0, 0, 0, time.UTC),
	}
	// Turns 18 tomorrow: still pediatric today.
	almostEighteen := &identity.Patient{
		ID: uuid.New(), Name: "Gui", Gender: identity.GenderMale,
		BirthDate: time.Date(2007, 7, 8, 0, 0, 0, 0, time.UTC),
	}
	dir := f.svc.patients.(*mockPatientDir)
	dir.byID[justEighteen.ID] = justEighteen
	dir.byID[almostEighteen.ID] = almostEighteen

	bed := f.addBed(f.pedRoom, ward.BedFree)
	_, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: justEighteen.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("18th-birthday patient: err = %v, want conflict", err)
	}

	if _, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: almostEighteen.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	}); err != nil {
		t.Fatalf("17-year-old: %v", err)
	}
}

func TestAdmitUnrestrictedCategories(t *testing.T) {
	f := newFixture()
	bed := f.addBed(f.icuRoom, ward.BedFree)

	if _, err := f.svc.Admit(context.Background(), AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	}); err != nil {
		t.Fatalf("ICU_GENERAL admits anyone: %v", err)
	}
}

func TestDischargeFreesBed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bed := f.addBed(f.icuRoom, ward.BedFree)

	adm, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	out, err := f.svc.Discharge(ctx, adm.ID)
	if err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if out.Status != StatusDischarged || out.DischargedAt == nil {
		t.Fatalf("admission = %+v", out)
	}
	if bed.Status != ward.BedFree {
		t.Fatalf("bed status = %s, want FREE", bed.Status)
	}

	_, err = f.svc.Discharge(ctx, adm.ID)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("double discharge: kind = %v, want conflict", apperr.KindOf(err))
	}
}

func TestBedReusableAfterDischarge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bed := f.addBed(f.icuRoom, ward.BedFree)

	adm, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if _, err := f.svc.Discharge(ctx, adm.ID); err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	if _, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.malePatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	}); err != nil {
		t.Fatalf("re-admit after discharge: %v", err)
	}
}

func TestAddRecordActiveOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	bed := f.addBed(f.icuRoom, ward.BedFree)

	adm, err := f.svc.Admit(ctx, AdmitInput{
		PatientID: f.adultPatient.ID, BedID: bed.ID, ProfessionalID: f.prof.ID,
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	author := uuid.New()
	if _, err := f.svc.AddRecord(ctx, adm.ID, author, RecordInput{Notes: "stable overnight"}); err != nil {
		t.Fatalf("AddRecord: %v", err)
	}

	detail, err := f.svc.Get(ctx, adm.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(detail.Records) != 1 || detail.Records[0].Notes != "stable overnight" {
		t.Fatalf("records = %+v", detail.Records)
	}

	if _, err := f.svc.Discharge(ctx, adm.ID); err != nil {
		t.Fatalf("Discharge: %v", err)
	}
	_, err = f.svc.AddRecord(ctx, adm.ID, author, RecordInput{Notes: "too late"})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("record on discharged: kind = %v, want conflict", apperr.KindOf(err))
	}
}
