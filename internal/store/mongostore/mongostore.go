// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pixelforge/nexus/internal/models"
	"github.com/pixelforge/nexus/internal/store"
)

const (
	usersCollection     = "users"
	projectsCollection  = "projects"
	documentsCollection = "documents"
)

type Store struct {
	client    *mongo.Client
	users     *mongo.Collection
	projects  *mongo.Collection
	documents *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects, verifies the connection and creates the indexes the store relies on.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:    client,
		users:     db.Collection(usersCollection),
		projects:  db.Collection(projectsCollection),
		documents: db.Collection(documentsCollection),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates unique and lookup indexes; it is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "username", Value: 1}}},
		}},
		{s.projects, []mongo.IndexModel{
			{Keys: bson.D{{Key: "createdBy", Value: 1}}},
			{Keys: bson.D{{Key: "teamMembers", Value: 1}}},
		}},
		{s.documents, []mongo.IndexModel{
			{Keys: bson.D{{Key: "filename", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "project", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Used by tests against a scratch database.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.users, s.projects, s.documents} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	ts := now()
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if !u.CreatedAt.IsZero() {
		doc.CreatedAt = u.CreatedAt
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	*u = doc.toModel()
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	u := doc.toModel()
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) findUsers(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toModel())
	}
	return users, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}
	return s.findUsers(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{"role": string(role)}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
}

func (s *Store) CountUsersByRole(ctx context.Context, role models.Role) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{"role": string(role)})
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"password": passwordHash, "updatedAt": now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- projects ---

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	creator, err := primitive.ObjectIDFromHex(p.CreatedBy)
	if err != nil {
		return fmt.Errorf("invalid creator id %q: %w", p.CreatedBy, err)
	}

	ts := now()
	doc := projectDoc{
		ID:          primitive.NewObjectID(),
		Name:        p.Name,
		Description: p.Description,
		Deadline:    p.Deadline,
		Status:      string(p.Status),
		CreatedBy:   creator,
		TeamMembers: objectIDs(p.Members),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if doc.Status == "" {
		doc.Status = string(models.ProjectActive)
	}
	if !p.CreatedAt.IsZero() {
		doc.CreatedAt = p.CreatedAt
	}
	if _, err := s.projects.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	*p = doc.toModel()
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc projectDoc
	if err := s.projects.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	p := doc.toModel()
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, filter store.ProjectFilter) ([]models.Project, error) {
	query := bson.M{}
	if !filter.All() {
		var or bson.A
		if oid, err := primitive.ObjectIDFromHex(filter.CreatedBy); err == nil {
			or = append(or, bson.M{"createdBy": oid})
		}
		if oid, err := primitive.ObjectIDFromHex(filter.MemberID); err == nil {
			or = append(or, bson.M{"teamMembers": oid})
		}
		if len(or) == 0 {
			return []models.Project{}, nil
		}
		query["$or"] = or
	}

	cursor, err := s.projects.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []projectDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(docs))
	for i := range docs {
		projects = append(projects, docs[i].toModel())
	}
	return projects, nil
}

func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.projects.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"status": string(status), "updatedAt": now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AddMember appends atomically: the filter only matches when the user is
// not yet in teamMembers, so concurrent assignments cannot duplicate.
func (s *Store) AddMember(ctx context.Context, projectID, userID string) error {
	pid, err := parseID(projectID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}

	res, err := s.projects.UpdateOne(ctx,
		bson.M{"_id": pid, "teamMembers": bson.M{"$ne": uid}},
		bson.M{
			"$addToSet": bson.M{"teamMembers": uid},
			"$set":      bson.M{"updatedAt": now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.projects.CountDocuments(ctx, bson.M{"_id": pid})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrAlreadyMember
}

func (s *Store) RemoveMember(ctx context.Context, projectID, userID string) error {
	pid, err := parseID(projectID)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"updatedAt": now()}}
	if uid, err := primitive.ObjectIDFromHex(userID); err == nil {
		update["$pull"] = bson.M{"teamMembers": uid}
	}

	res, err := s.projects.UpdateByID(ctx, pid, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- documents ---

func (s *Store) CreateDocument(ctx context.Context, d *models.Document) error {
	project, err := primitive.ObjectIDFromHex(d.ProjectID)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", d.ProjectID, err)
	}
	uploader, err := primitive.ObjectIDFromHex(d.UploadedBy)
	if err != nil {
		return fmt.Errorf("invalid uploader id %q: %w", d.UploadedBy, err)
	}

	ts := now()
	doc := documentDoc{
		ID:           primitive.NewObjectID(),
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		FilePath:     d.FilePath,
		FileSize:     d.FileSize,
		MimeType:     d.MimeType,
		Project:      project,
		UploadedBy:   uploader,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if !d.CreatedAt.IsZero() {
		doc.CreatedAt = d.CreatedAt
	}
	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	*d = doc.toModel()
	return nil
}

func (s *Store) findDocument(ctx context.Context, filter bson.M) (*models.Document, error) {
	var doc documentDoc
	if err := s.documents.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	d := doc.toModel()
	return &d, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.findDocument(ctx, bson.M{"_id": oid})
}

func (s *Store) GetDocumentByFilename(ctx context.Context, filename string) (*models.Document, error) {
	return s.findDocument(ctx, bson.M{"filename": filename})
}

func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]models.Document, error) {
	pid, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return []models.Document{}, nil
	}

	cursor, err := s.documents.Find(ctx, bson.M{"project": pid}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []documentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.documents.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
