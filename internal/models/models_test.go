package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDoc_Profile(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		doc      UserDoc
		wantErr  error
		wantRole Role
		wantName string
	}{
		{
			name:     "developer",
			doc:      UserDoc{UID: "u1", Email: "dev@example.com", Role: "DEVELOPER", Name: "Ada", CreatedAt: created},
			wantRole: RoleDeveloper,
			wantName: "Ada",
		},
		{
			name:     "company",
			doc:      UserDoc{UID: "u2", Email: "co@example.com", Role: "COMPANY", CompanyName: "Acme", CreatedAt: created},
			wantRole: RoleCompany,
			wantName: "Acme",
		},
		{
			name:    "unknown role is rejected",
			doc:     UserDoc{UID: "u3", Role: "ADMIN"},
			wantErr: ErrUnknownRole,
		},
		{
			name:    "lowercase role is rejected",
			doc:     UserDoc{UID: "u4", Role: "developer"},
			wantErr: ErrUnknownRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.doc.Profile()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, p.Role())
			assert.Equal(t, tt.wantName, p.DisplayName())
			assert.Equal(t, tt.doc.UID, p.Base().UID)
			assert.Equal(t, created, p.Base().CreatedAt)
		})
	}
}

func TestNewUserDoc_RoundTrip(t *testing.T) {
	p, err := NewProfile(RoleCompany, "c1", "co@example.com", "Acme")
	require.NoError(t, err)

	doc := NewUserDoc(p)
	assert.Equal(t, "COMPANY", doc.Role)
	assert.Equal(t, "Acme", doc.CompanyName)
	assert.Empty(t, doc.Name)

	back, err := doc.Profile()
	require.NoError(t, err)
	company, ok := back.(*Company)
	require.True(t, ok)
	assert.Equal(t, "Acme", company.CompanyName)
}

func TestNewProfile_UnknownRole(t *testing.T) {
	_, err := NewProfile(Role("ADMIN"), "x", "x@example.com", "X")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestSetDisplayName(t *testing.T) {
	dev := &Developer{Name: "old"}
	dev.SetDisplayName("new")
	assert.Equal(t, "new", dev.Name)

	co := &Company{CompanyName: "old"}
	co.SetDisplayName("new")
	assert.Equal(t, "new", co.CompanyName)

	assert.Equal(t, "name", NameField(RoleDeveloper))
	assert.Equal(t, "companyName", NameField(RoleCompany))
}

func TestNewProfileView(t *testing.T) {
	assert.Nil(t, NewProfileView(nil))

	view := NewProfileView(&Developer{Account: Account{UID: "d1", Email: "d@example.com"}, Name: "Ada"})
	assert.Equal(t, RoleDeveloper, view.Role)
	assert.Equal(t, "Ada", view.Name)
	assert.Nil(t, view.UpdatedAt)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"role":"DEVELOPER"`)
	assert.NotContains(t, string(raw), "companyName")
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Coding", CategoryCoding, true},
		{"Data Analysis", CategoryDataAnalysis, true},
		{"data_analysis", CategoryDataAnalysis, true},
		{" BLOCKCHAIN ", CategoryBlockchain, true},
		{"other", CategoryOther, true},
		{"gardening", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeCategory(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	got, ok := NormalizeDifficulty("Intermediate")
	assert.True(t, ok)
	assert.Equal(t, DifficultyIntermediate, got)

	_, ok = NormalizeDifficulty("expert")
	assert.False(t, ok)
}

func TestBountyReward(t *testing.T) {
	b := &Bounty{BountyBTC: 0.015}
	assert.Equal(t, "0.015", b.Reward().String())
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want error
	}{
		{"valid", Job{ID: "1", Type: JobTypeBountyCreated, Payload: json.RawMessage(`{}`)}, nil},
		{"missing id", Job{Type: JobTypeBountyCreated, Payload: json.RawMessage(`{}`)}, ErrJobIDRequired},
		{"missing type", Job{ID: "1", Payload: json.RawMessage(`{}`)}, ErrJobTypeRequired},
		{"missing payload", Job{ID: "1", Type: JobTypeBountyCreated}, ErrPayloadRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.Validate())
		})
	}

	assert.Equal(t, ErrBountyIDRequired, (&BountyCreatedJob{}).Validate())
	assert.Equal(t, ErrSubmissionIDRequired, (&SubmissionReceivedJob{BountyID: "b"}).Validate())
	assert.Equal(t, ErrBountyIDRequired, (&SubmissionReceivedJob{SubmissionID: "s"}).Validate())
	assert.NoError(t, (&SubmissionReceivedJob{SubmissionID: "s", BountyID: "b"}).Validate())
}
