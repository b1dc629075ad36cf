// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/profile"
	"github.com/coachlink/coachlink-go/internal/relationship"
	"github.com/coachlink/coachlink-go/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Settings holds sqlite-specific configuration keys.
type Settings struct {
	// File is the database file name inside DataDir. Defaults to
	// "coachlink.db".
	File string `mapstructure:"file"`
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	path string
	db   *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	var s Settings
	if err := cfg.DecodeSettings(&s); err != nil {
		return nil, fmt.Errorf("sqlite settings: %w", err)
	}
	if s.File == "" {
		s.File = "coachlink.db"
	}

	return &Driver{path: filepath.Join(cfg.DataDir, s.File)}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string { return "sqlite" }

// Init opens the database, runs AutoMigrate and creates the partial
// unique index that enforces one pending invitation per (coach, email).
func (d *Driver) Init(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(d.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.db = db

	if err := db.AutoMigrate(
		&invitationRow{},
		&relationshipRow{},
		&coachRow{},
		&athleteRow{},
		&accountRow{},
		&sessionRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Partial index: at most one pending invitation per coach and email.
	// Terminal rows (accepted, declined, cancelled) do not occupy the slot.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_invitations_pending
		 ON invitations(coach_id, email) WHERE status = 'pending'`,
	).Error; err != nil {
		return fmt.Errorf("failed to create pending index: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Driver) Invitations() invitation.Repo     { return &invitationStore{db: d.db} }
func (d *Driver) Relationships() relationship.Repo { return &relationshipStore{db: d.db} }
func (d *Driver) Coaches() profile.CoachRepo       { return &coachStore{db: d.db} }
func (d *Driver) Athletes() profile.AthleteRepo    { return &athleteStore{db: d.db} }
func (d *Driver) Accounts() identity.AccountRepo   { return &accountStore{db: d.db} }
func (d *Driver) Sessions() identity.SessionRepo   { return &sessionStore{db: d.db} }

var _ store.Driver = (*Driver)(nil)

// uniqueViolation reports whether err is a UNIQUE constraint failure
// naming the given column.
func uniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// Invitations

type invitationRow struct {
	ID         string `gorm:"primaryKey"`
	CoachID    string `gorm:"index"`
	Email      string
	Message    string
	Token      string `gorm:"uniqueIndex"`
	Status     string `gorm:"index"`
	SentAt     time.Time
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	AthleteID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (invitationRow) TableName() string { return "invitations" }

func invitationToRow(inv *invitation.Invitation) *invitationRow {
	return &invitationRow{
		ID:         string(inv.ID),
		CoachID:    string(inv.CoachID),
		Email:      inv.Email,
		Message:    inv.Message,
		Token:      inv.Token,
		Status:     string(inv.Status),
		SentAt:     inv.SentAt,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		AthleteID:  string(inv.AthleteID),
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
	}
}

func invitationFromRow(row *invitationRow) *invitation.Invitation {
	return &invitation.Invitation{
		ID:         invitation.ID(row.ID),
		CoachID:    identity.AccountID(row.CoachID),
		Email:      row.Email,
		Message:    row.Message,
		Token:      row.Token,
		Status:     invitation.Status(row.Status),
		SentAt:     row.SentAt,
		ExpiresAt:  row.ExpiresAt,
		AcceptedAt: row.AcceptedAt,
		AthleteID:  profile.AthleteProfileID(row.AthleteID),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

type invitationStore struct {
	db *gorm.DB
}

func (s *invitationStore) Create(ctx context.Context, inv *invitation.Invitation) error {
	if inv.ID == "" {
		inv.ID = invitation.ID(uuid.New().String())
	}
	inv.Email = identity.NormalizeEmail(inv.Email)
	now := time.Now()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now
	if inv.Status == "" {
		inv.Status = invitation.StatusPending
	}

	err := s.db.WithContext(ctx).Create(invitationToRow(inv)).Error
	if uniqueViolation(err, "invitations.coach_id") {
		return invitation.ErrDuplicatePending
	}
	return err
}

func (s *invitationStore) GetByID(ctx context.Context, id invitation.ID) (*invitation.Invitation, error) {
	var row invitationRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, invitation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return invitationFromRow(&row), nil
}

func (s *invitationStore) GetByToken(ctx context.Context, token string) (*invitation.Invitation, error) {
	if token == "" {
		return nil, invitation.ErrNotFound
	}
	var row invitationRow
	err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, invitation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return invitationFromRow(&row), nil
}

func (s *invitationStore) FindPendingByCoachAndEmail(ctx context.Context, coachID identity.AccountID, email string) (*invitation.Invitation, error) {
	var row invitationRow
	err := s.db.WithContext(ctx).First(&row,
		"coach_id = ? AND email = ? AND status = ?",
		string(coachID), identity.NormalizeEmail(email), string(invitation.StatusPending)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, invitation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return invitationFromRow(&row), nil
}

// Update writes inv guarded by the expected stored statuses. The guard
// rides in the WHERE clause so concurrent writers collapse to one winner
// at the database, not in Go.
func (s *invitationStore) Update(ctx context.Context, inv *invitation.Invitation, expect ...invitation.Status) error {
	inv.UpdatedAt = time.Now()

	q := s.db.WithContext(ctx).Model(&invitationRow{}).Where("id = ?", string(inv.ID))
	if len(expect) > 0 {
		statuses := make([]string, len(expect))
		for i, st := range expect {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}

	res := q.Updates(map[string]any{
		"email":       inv.Email,
		"message":     inv.Message,
		"token":       inv.Token,
		"status":      string(inv.Status),
		"sent_at":     inv.SentAt,
		"expires_at":  inv.ExpiresAt,
		"accepted_at": inv.AcceptedAt,
		"athlete_id":  string(inv.AthleteID),
		"updated_at":  inv.UpdatedAt,
	})
	if uniqueViolation(res.Error, "invitations.coach_id") {
		// The pending index fired: a newer pending invitation occupies the
		// (coach, email) slot this update would re-enter.
		return invitation.ErrDuplicatePending
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or the precondition failed. Re-read to
		// tell the caller which.
		var row invitationRow
		err := s.db.WithContext(ctx).First(&row, "id = ?", string(inv.ID)).Error
		if err == gorm.ErrRecordNotFound {
			return invitation.ErrNotFound
		}
		if err != nil {
			return err
		}
		return &invitation.StatusConflictError{Current: invitation.Status(row.Status)}
	}
	return nil
}

func (s *invitationStore) ListByCoach(ctx context.Context, coachID identity.AccountID, f invitation.ListFilter) ([]*invitation.Invitation, error) {
	q := s.db.WithContext(ctx).Where("coach_id = ?", string(coachID))
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.Email != "" {
		q = q.Where("email = ?", identity.NormalizeEmail(f.Email))
	}
	q = q.Order("sent_at DESC")
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []*invitationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]*invitation.Invitation, len(rows))
	for i, row := range rows {
		result[i] = invitationFromRow(row)
	}
	return result, nil
}

var _ invitation.Repo = (*invitationStore)(nil)

// Relationships

type relationshipRow struct {
	ID              string `gorm:"primaryKey"`
	CoachID         string `gorm:"index"`
	AthleteID       string `gorm:"index"`
	InvitationID    string `gorm:"uniqueIndex"`
	TermsAcceptedAt time.Time
	TermsVersion    string
	Status          string
	CreatedAt       time.Time
}

func (relationshipRow) TableName() string { return "relationships" }

func relationshipFromRow(row *relationshipRow) *relationship.Relationship {
	return &relationship.Relationship{
		ID:              relationship.ID(row.ID),
		CoachID:         profile.CoachProfileID(row.CoachID),
		AthleteID:       profile.AthleteProfileID(row.AthleteID),
		InvitationID:    row.InvitationID,
		TermsAcceptedAt: row.TermsAcceptedAt,
		TermsVersion:    row.TermsVersion,
		Status:          relationship.Status(row.Status),
		CreatedAt:       row.CreatedAt,
	}
}

type relationshipStore struct {
	db *gorm.DB
}

func (s *relationshipStore) Create(ctx context.Context, rel *relationship.Relationship) error {
	if rel.ID == "" {
		rel.ID = relationship.ID(uuid.New().String())
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	if rel.Status == "" {
		rel.Status = relationship.StatusActive
	}

	err := s.db.WithContext(ctx).Create(&relationshipRow{
		ID:              string(rel.ID),
		CoachID:         string(rel.CoachID),
		AthleteID:       string(rel.AthleteID),
		InvitationID:    rel.InvitationID,
		TermsAcceptedAt: rel.TermsAcceptedAt,
		TermsVersion:    rel.TermsVersion,
		Status:          string(rel.Status),
		CreatedAt:       rel.CreatedAt,
	}).Error
	if uniqueViolation(err, "relationships.invitation_id") {
		return relationship.ErrAlreadyExists
	}
	return err
}

func (s *relationshipStore) GetByInvitationID(ctx context.Context, invitationID string) (*relationship.Relationship, error) {
	var row relationshipRow
	err := s.db.WithContext(ctx).First(&row, "invitation_id = ?", invitationID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, relationship.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return relationshipFromRow(&row), nil
}

func (s *relationshipStore) ListByCoach(ctx context.Context, coachID profile.CoachProfileID) ([]*relationship.Relationship, error) {
	var rows []*relationshipRow
	err := s.db.WithContext(ctx).Where("coach_id = ?", string(coachID)).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]*relationship.Relationship, len(rows))
	for i, row := range rows {
		result[i] = relationshipFromRow(row)
	}
	return result, nil
}

var _ relationship.Repo = (*relationshipStore)(nil)

// Coach profiles

type coachRow struct {
	ID          string `gorm:"primaryKey"`
	AccountID   string `gorm:"uniqueIndex"`
	DisplayName string
	Headline    string
	Bio         string
	CreatedAt   time.Time
}

func (coachRow) TableName() string { return "coach_profiles" }

func coachFromRow(row *coachRow) *profile.CoachProfile {
	return &profile.CoachProfile{
		ID:          profile.CoachProfileID(row.ID),
		AccountID:   identity.AccountID(row.AccountID),
		DisplayName: row.DisplayName,
		Headline:    row.Headline,
		Bio:         row.Bio,
		CreatedAt:   row.CreatedAt,
	}
}

type coachStore struct {
	db *gorm.DB
}

func (s *coachStore) Create(ctx context.Context, p *profile.CoachProfile) error {
	if p.ID == "" {
		p.ID = profile.CoachProfileID(uuid.New().String())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&coachRow{
		ID:          string(p.ID),
		AccountID:   string(p.AccountID),
		DisplayName: p.DisplayName,
		Headline:    p.Headline,
		Bio:         p.Bio,
		CreatedAt:   p.CreatedAt,
	}).Error
}

func (s *coachStore) GetByID(ctx context.Context, id profile.CoachProfileID) (*profile.CoachProfile, error) {
	var row coachRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, profile.ErrCoachNotFound
	}
	if err != nil {
		return nil, err
	}
	return coachFromRow(&row), nil
}

func (s *coachStore) GetByAccountID(ctx context.Context, accountID identity.AccountID) (*profile.CoachProfile, error) {
	var row coachRow
	err := s.db.WithContext(ctx).First(&row, "account_id = ?", string(accountID)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, profile.ErrCoachNotFound
	}
	if err != nil {
		return nil, err
	}
	return coachFromRow(&row), nil
}

var _ profile.CoachRepo = (*coachStore)(nil)

// Athlete profiles

type athleteRow struct {
	ID          string `gorm:"primaryKey"`
	AccountID   string `gorm:"uniqueIndex"`
	DisplayName string
	CoachID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (athleteRow) TableName() string { return "athlete_profiles" }

func athleteFromRow(row *athleteRow) *profile.AthleteProfile {
	return &profile.AthleteProfile{
		ID:          profile.AthleteProfileID(row.ID),
		AccountID:   identity.AccountID(row.AccountID),
		DisplayName: row.DisplayName,
		CoachID:     profile.CoachProfileID(row.CoachID),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

type athleteStore struct {
	db *gorm.DB
}

func (s *athleteStore) Create(ctx context.Context, p *profile.AthleteProfile) error {
	if p.ID == "" {
		p.ID = profile.AthleteProfileID(uuid.New().String())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&athleteRow{
		ID:          string(p.ID),
		AccountID:   string(p.AccountID),
		DisplayName: p.DisplayName,
		CoachID:     string(p.CoachID),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}).Error
}

func (s *athleteStore) GetByID(ctx context.Context, id profile.AthleteProfileID) (*profile.AthleteProfile, error) {
	var row athleteRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, profile.ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}
	return athleteFromRow(&row), nil
}

func (s *athleteStore) GetByAccountID(ctx context.Context, accountID identity.AccountID) (*profile.AthleteProfile, error) {
	var row athleteRow
	err := s.db.WithContext(ctx).First(&row, "account_id = ?", string(accountID)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, profile.ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}
	return athleteFromRow(&row), nil
}

func (s *athleteStore) LinkCoach(ctx context.Context, id profile.AthleteProfileID, coachID profile.CoachProfileID) error {
	res := s.db.WithContext(ctx).Model(&athleteRow{}).Where("id = ?", string(id)).Updates(map[string]any{
		"coach_id":   string(coachID),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return profile.ErrAthleteNotFound
	}
	return nil
}

var _ profile.AthleteRepo = (*athleteStore)(nil)

// Accounts

type accountRow struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex"`
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

func (accountRow) TableName() string { return "accounts" }

func accountFromRow(row *accountRow) *identity.Account {
	return &identity.Account{
		ID:           identity.AccountID(row.ID),
		Email:        row.Email,
		DisplayName:  row.DisplayName,
		Role:         identity.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}
}

type accountStore struct {
	db *gorm.DB
}

func (s *accountStore) Create(ctx context.Context, account *identity.Account) error {
	if account.ID == "" {
		account.ID = identity.AccountID(uuid.New().String())
	}
	account.Email = identity.NormalizeEmail(account.Email)
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	err := s.db.WithContext(ctx).Create(&accountRow{
		ID:           string(account.ID),
		Email:        account.Email,
		DisplayName:  account.DisplayName,
		Role:         string(account.Role),
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
	}).Error
	if uniqueViolation(err, "accounts.email") {
		return identity.ErrEmailTaken
	}
	return err
}

func (s *accountStore) GetByID(ctx context.Context, id identity.AccountID) (*identity.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return accountFromRow(&row), nil
}

func (s *accountStore) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).First(&row, "email = ?", identity.NormalizeEmail(email)).Error
	if err == gorm.ErrRecordNotFound {
		return nil, identity.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return accountFromRow(&row), nil
}

var _ identity.AccountRepo = (*accountStore)(nil)

// Sessions

type sessionRow struct {
	Token     string `gorm:"primaryKey"`
	AccountID string `gorm:"index"`
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type sessionStore struct {
	db *gorm.DB
}

func (s *sessionStore) Create(ctx context.Context, accountID identity.AccountID, ttl time.Duration) (*identity.Session, error) {
	if ttl <= 0 {
		ttl = identity.DefaultSessionTTL
	}
	token, err := identity.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &identity.Session{
		Token:     token,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(&sessionRow{
		Token:     session.Token,
		AccountID: string(session.AccountID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionStore) GetByToken(ctx context.Context, token string) (*identity.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, identity.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &identity.Session{
		Token:     row.Token,
		AccountID: identity.AccountID(row.AccountID),
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (s *sessionStore) Delete(ctx context.Context, token string) error {
	res := s.db.WithContext(ctx).Delete(&sessionRow{}, "token = ?", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrSessionNotFound
	}
	return nil
}

var _ identity.SessionRepo = (*sessionStore)(nil)
