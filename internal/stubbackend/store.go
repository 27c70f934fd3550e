package stubbackend

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

type userRecord struct {
	user         domain.User
	passwordHash []byte
}

type projectRecord struct {
	id          domain.ProjectID
	name        string
	description string
	deadline    domain.Date
	members     []domain.UserID
	file        *domain.Asset
	createdBy   domain.UserID
}

type messageRecord struct {
	projectID domain.ProjectID
	sender    domain.UserID
	content   string
	timestamp time.Time
}

type upload struct {
	contentType string
	body        []byte
}

// memoryDB is the backend's whole state. Collections keep insertion order.
type memoryDB struct {
	mu       sync.RWMutex
	users    []userRecord
	projects []projectRecord
	tasks    []domain.Task
	messages []messageRecord
	uploads  map[string]upload
}

func newMemoryDB() *memoryDB {
	return &memoryDB{uploads: map[string]upload{}}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func (db *memoryDB) addUser(u domain.User, hash []byte) (domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	fields := map[string]string{}
	for _, existing := range db.users {
		if strings.EqualFold(existing.user.Email, u.Email) {
			fields["email"] = "Email is already registered"
		}
		if existing.user.Username == u.Username {
			fields["username"] = "Username is already taken"
		}
	}
	if len(fields) > 0 {
		return domain.User{}, dErrors.Validation("User already exists", fields)
	}
	u.ID = domain.UserID(newID())
	db.users = append(db.users, userRecord{user: u, passwordHash: hash})
	return u, nil
}

// findLogin matches an email (case-insensitively) or a username.
func (db *memoryDB) findLogin(identifier string) (userRecord, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, r := range db.users {
		if strings.EqualFold(r.user.Email, identifier) || r.user.Username == identifier {
			return r, true
		}
	}
	return userRecord{}, false
}

func (db *memoryDB) user(id domain.UserID) (domain.User, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.userLocked(id)
}

func (db *memoryDB) userLocked(id domain.UserID) (domain.User, bool) {
	for _, r := range db.users {
		if r.user.ID == id {
			return r.user, true
		}
	}
	return domain.User{}, false
}

func (db *memoryDB) listUsers() []domain.User {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]domain.User, 0, len(db.users))
	for _, r := range db.users {
		out = append(out, r.user)
	}
	return out
}

// ref populates a user reference, falling back to the bare id for users that
// no longer exist.
func (db *memoryDB) refLocked(id domain.UserID) domain.UserRef {
	if u, ok := db.userLocked(id); ok {
		return domain.RefTo(u)
	}
	return domain.RefID(id)
}

func (db *memoryDB) projectViewLocked(p projectRecord) domain.Project {
	view := domain.Project{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Deadline:    p.deadline,
		Members:     make([]domain.UserRef, 0, len(p.members)),
		File:        p.file,
		CreatedBy:   db.refLocked(p.createdBy),
	}
	for _, m := range p.members {
		view.Members = append(view.Members, db.refLocked(m))
	}
	return view
}

func (p projectRecord) visibleTo(id domain.UserID, role domain.Role) bool {
	return role.IsAdmin() || p.createdBy == id || slices.Contains(p.members, id)
}

func (db *memoryDB) unknownUsersLocked(ids []domain.UserID) []domain.UserID {
	var unknown []domain.UserID
	for _, id := range ids {
		if _, ok := db.userLocked(id); !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

func (db *memoryDB) projectIndexLocked(id domain.ProjectID) int {
	return slices.IndexFunc(db.projects, func(p projectRecord) bool { return p.id == id })
}

func (db *memoryDB) addProject(p projectRecord) (domain.Project, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if unknown := db.unknownUsersLocked(p.members); len(unknown) > 0 {
		return domain.Project{}, dErrors.Validation("Validation failed", map[string]string{"members": "Unknown member " + string(unknown[0])})
	}
	p.id = domain.ProjectID(newID())
	db.projects = append(db.projects, p)
	return db.projectViewLocked(p), nil
}

// projectPatch holds the fields an edit replaces; nil leaves a field alone.
type projectPatch struct {
	name        *string
	description *string
	deadline    *domain.Date
	members     []domain.UserID
	setMembers  bool
	file        *domain.Asset
}

func (db *memoryDB) updateProject(id domain.ProjectID, patch projectPatch) (domain.Project, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.projectIndexLocked(id)
	if i < 0 {
		return domain.Project{}, dErrors.New(dErrors.CodeNotFound, "Project not found")
	}
	if patch.setMembers {
		if unknown := db.unknownUsersLocked(patch.members); len(unknown) > 0 {
			return domain.Project{}, dErrors.Validation("Validation failed", map[string]string{"members": "Unknown member " + string(unknown[0])})
		}
	}
	p := db.projects[i]
	if patch.name != nil {
		p.name = *patch.name
	}
	if patch.description != nil {
		p.description = *patch.description
	}
	if patch.deadline != nil {
		p.deadline = *patch.deadline
	}
	if patch.setMembers {
		p.members = patch.members
	}
	if patch.file != nil {
		p.file = patch.file
	}
	db.projects[i] = p
	return db.projectViewLocked(p), nil
}

func (db *memoryDB) deleteProject(id domain.ProjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.projectIndexLocked(id)
	if i < 0 {
		return dErrors.New(dErrors.CodeNotFound, "Project not found")
	}
	db.projects = slices.Delete(db.projects, i, i+1)
	db.tasks = slices.DeleteFunc(db.tasks, func(t domain.Task) bool { return t.ProjectID == id })
	db.messages = slices.DeleteFunc(db.messages, func(m messageRecord) bool { return m.projectID == id })
	return nil
}

// project returns the project if the caller may see it.
func (db *memoryDB) project(id domain.ProjectID, caller domain.UserID, role domain.Role) (domain.Project, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	i := db.projectIndexLocked(id)
	if i < 0 {
		return domain.Project{}, dErrors.New(dErrors.CodeNotFound, "Project not found")
	}
	p := db.projects[i]
	if !p.visibleTo(caller, role) {
		return domain.Project{}, dErrors.New(dErrors.CodeForbidden, "You are not a member of this project")
	}
	return db.projectViewLocked(p), nil
}

func (db *memoryDB) listProjects(caller domain.UserID, role domain.Role) []domain.Project {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []domain.Project{}
	for _, p := range db.projects {
		if p.visibleTo(caller, role) {
			out = append(out, db.projectViewLocked(p))
		}
	}
	return out
}

func (db *memoryDB) taskViewLocked(t domain.Task) domain.Task {
	if t.Assignee.ID != "" {
		t.Assignee = db.refLocked(t.Assignee.ID)
	}
	return t
}

func (db *memoryDB) checkAssigneeLocked(projectID domain.ProjectID, assignee domain.UserID) error {
	i := db.projectIndexLocked(projectID)
	if i < 0 {
		return dErrors.Validation("Validation failed", map[string]string{"projectId": "Project not found"})
	}
	if assignee == "" {
		return nil
	}
	if _, ok := db.userLocked(assignee); !ok {
		return dErrors.Validation("Validation failed", map[string]string{"assignee": "Unknown user"})
	}
	if !slices.Contains(db.projects[i].members, assignee) {
		return dErrors.Validation("Validation failed", map[string]string{"assignee": "Assignee must be a project member"})
	}
	return nil
}

func (db *memoryDB) addTask(t domain.Task) (domain.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkAssigneeLocked(t.ProjectID, t.Assignee.ID); err != nil {
		return domain.Task{}, err
	}
	t.ID = domain.TaskID(newID())
	db.tasks = append(db.tasks, t)
	return db.taskViewLocked(t), nil
}

func (db *memoryDB) taskIndexLocked(id domain.TaskID) int {
	return slices.IndexFunc(db.tasks, func(t domain.Task) bool { return t.ID == id })
}

// replaceTask swaps the whole record. Employees may only edit tasks assigned
// to them.
func (db *memoryDB) replaceTask(t domain.Task, caller domain.UserID, role domain.Role) (domain.Task, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.taskIndexLocked(t.ID)
	if i < 0 {
		return domain.Task{}, dErrors.New(dErrors.CodeNotFound, "Task not found")
	}
	if !role.IsAdmin() && db.tasks[i].Assignee.ID != caller {
		return domain.Task{}, dErrors.New(dErrors.CodeForbidden, "Only the assignee can update this task")
	}
	if err := db.checkAssigneeLocked(t.ProjectID, t.Assignee.ID); err != nil {
		return domain.Task{}, err
	}
	db.tasks[i] = t
	return db.taskViewLocked(t), nil
}

func (db *memoryDB) deleteTask(id domain.TaskID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	i := db.taskIndexLocked(id)
	if i < 0 {
		return dErrors.New(dErrors.CodeNotFound, "Task not found")
	}
	db.tasks = slices.Delete(db.tasks, i, i+1)
	return nil
}

func (db *memoryDB) listTasks(projectID domain.ProjectID) []domain.Task {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []domain.Task{}
	for _, t := range db.tasks {
		if t.ProjectID == projectID {
			out = append(out, db.taskViewLocked(t))
		}
	}
	return out
}

func (db *memoryDB) addMessage(m messageRecord) domain.Message {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.messages = append(db.messages, m)
	return db.messageViewLocked(m)
}

func (db *memoryDB) messageViewLocked(m messageRecord) domain.Message {
	return domain.Message{
		Content:   m.content,
		Sender:    db.refLocked(m.sender),
		Timestamp: m.timestamp,
		ProjectID: m.projectID,
	}
}

func (db *memoryDB) listMessages(projectID domain.ProjectID) []domain.Message {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []domain.Message{}
	for _, m := range db.messages {
		if m.projectID == projectID {
			out = append(out, db.messageViewLocked(m))
		}
	}
	return out
}

func (db *memoryDB) saveUpload(filename, contentType string, body []byte) *domain.Asset {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := newID() + "/" + filename
	db.uploads[key] = upload{contentType: contentType, body: body}
	return &domain.Asset{URL: "/uploads/" + key}
}

func (db *memoryDB) upload(key string) (upload, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.uploads[key]
	return u, ok
}
