package databases

// go generate: mockery --name CaseDatabase

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/dharma-case-api/models"
)

const caseName = "cases"

var (
	// ErrNoDocuments is returned when no case matches the lookup
	ErrNoDocuments = errors.New("no documents in result")
	// ErrVersionConflict is returned when a case changed since it was read
	ErrVersionConflict = errors.New("case was modified concurrently")
	// ErrDuplicateKey is returned when a case id is already taken
	ErrDuplicateKey = errors.New("case id already exists")
)

// CaseFilter narrows a case listing. Zero values match everything.
type CaseFilter struct {
	Status        models.CaseStatus
	ParticipantID string
}

// Matches reports whether c passes the filter
func (f CaseFilter) Matches(c models.CaseFile) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.ParticipantID != "" && c.CreatedBy.ID != f.ParticipantID && !c.IsAssigned(f.ParticipantID) {
		return false
	}
	return true
}

// CaseDatabase contains the methods to use with the case database
type CaseDatabase interface {
	FindOne(ctx context.Context, id string) (*models.CaseFile, error)
	Find(ctx context.Context, filter CaseFilter) ([]models.CaseFile, error)
	InsertOne(ctx context.Context, c models.CaseFile) error
	// ReplaceOne stores c only if the stored version still equals
	// expectedVersion, and bumps c.Version on success.
	ReplaceOne(ctx context.Context, c *models.CaseFile, expectedVersion int32) error
	CountDocuments(ctx context.Context, filter CaseFilter) (int64, error)
}

type caseDatabase struct {
	db DatabaseHelper
}

// NewCaseDatabase initializes a new instance of case database with the provided db connection
func NewCaseDatabase(db DatabaseHelper) CaseDatabase {
	return &caseDatabase{
		db: db,
	}
}

func (c *caseDatabase) FindOne(ctx context.Context, id string) (*models.CaseFile, error) {
	caseFile := &models.CaseFile{}
	err := c.db.Collection(caseName).FindOne(ctx, bson.M{"_id": id}).Decode(&caseFile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return caseFile, nil
}

func (c *caseDatabase) Find(ctx context.Context, filter CaseFilter) ([]models.CaseFile, error) {
	var cases []models.CaseFile
	curr, err := c.db.Collection(caseName).Find(ctx, mongoFilter(filter), &options.FindOptions{
		Sort: bson.D{{Key: "filingDate", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &cases)
	if err != nil {
		return nil, err
	}
	if cases == nil {
		cases = []models.CaseFile{}
	}
	return cases, nil
}

func (c *caseDatabase) InsertOne(ctx context.Context, caseFile models.CaseFile) error {
	_, err := c.db.Collection(caseName).InsertOne(ctx, caseFile)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, caseFile.ID)
	}
	return err
}

func (c *caseDatabase) ReplaceOne(ctx context.Context, caseFile *models.CaseFile, expectedVersion int32) error {
	next := *caseFile
	next.Version = expectedVersion + 1
	matched, err := c.db.Collection(caseName).ReplaceOne(ctx,
		bson.M{"_id": caseFile.ID, "__v": expectedVersion},
		next,
	)
	if err != nil {
		return err
	}
	if matched == 0 {
		return fmt.Errorf("%w: %s", ErrVersionConflict, caseFile.ID)
	}
	caseFile.Version = next.Version
	return nil
}

func (c *caseDatabase) CountDocuments(ctx context.Context, filter CaseFilter) (int64, error) {
	return c.db.Collection(caseName).CountDocuments(ctx, mongoFilter(filter))
}

func mongoFilter(f CaseFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ParticipantID != "" {
		filter["$or"] = []bson.M{
			{"assignedTo.id": f.ParticipantID},
			{"createdBy.id": f.ParticipantID},
		}
	}
	return filter
}
