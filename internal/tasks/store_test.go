package tasks

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks API,Session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"taskportal/internal/platform/logger"
	"taskportal/internal/state"
	"taskportal/internal/tasks/mocks"
	"taskportal/pkg/domain"
	dErrors "taskportal/pkg/domain-errors"
)

// =============================================================================
// Task Store Test Suite
// =============================================================================
// The store is the single writer of the task slice. Tests verify how each
// operation reduces server outcomes into the collection and the error fields.

type StoreSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	api     *mocks.MockAPI
	session *mocks.MockSession
	store   *Store
	ctx     context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.api = mocks.NewMockAPI(s.ctrl)
	s.session = mocks.NewMockSession(s.ctrl)
	s.session.EXPECT().Token().Return("tok").AnyTimes()
	s.ctx = context.Background()

	store, err := New(s.api, s.session, WithLogger(logger.Discard()))
	s.Require().NoError(err)
	s.store = store
}

func (s *StoreSuite) TearDownTest() {
	s.ctrl.Finish()
}

func task(id, project string, status domain.TaskStatus) domain.Task {
	return domain.Task{ID: domain.TaskID(id), Title: "task " + id, ProjectID: domain.ProjectID(project), Status: status}
}

func taskIDs(tasks []domain.Task) []domain.TaskID {
	out := make([]domain.TaskID, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func (s *StoreSuite) seed(tasks ...domain.Task) {
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p1")).Return(tasks, nil)
	s.Require().NoError(s.store.FetchByProject(s.ctx, "p1"))
}

// =============================================================================
// Constructor
// =============================================================================

func (s *StoreSuite) TestNew() {
	s.Run("nil api returns error", func() {
		_, err := New(nil, s.session)
		s.ErrorContains(err, "task api is required")
	})

	s.Run("nil session returns error", func() {
		_, err := New(s.api, nil)
		s.ErrorContains(err, "session is required")
	})

	s.Run("options apply", func() {
		store, err := New(s.api, s.session, WithRequestFencing(), WithMaxConcurrent(2), WithMaxConcurrent(0))
		s.Require().NoError(err)
		s.True(store.fence)
		s.Equal(2, store.maxConcurrent)
	})
}

// =============================================================================
// Fetch
// =============================================================================

func (s *StoreSuite) TestFetchByProject() {
	s.Run("replaces the whole collection", func() {
		s.seed(task("t1", "p1", domain.StatusToDo), task("t2", "p1", domain.StatusDone))
		s.seed(task("t3", "p1", domain.StatusToDo))
		st := s.store.State()
		s.Equal([]domain.TaskID{"t3"}, taskIDs(st.Tasks))
		s.False(st.Loading)
	})

	s.Run("failure keeps the collection and records the error", func() {
		s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p1")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Project not found"))
		err := s.store.FetchByProject(s.ctx, "p1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		st := s.store.State()
		s.Equal([]domain.TaskID{"t3"}, taskIDs(st.Tasks))
		s.Equal("Project not found", st.Error)
	})

	s.Run("empty response yields an empty collection", func() {
		s.seed()
		s.NotNil(s.store.State().Tasks)
		s.Empty(s.store.State().Tasks)
	})
}

func (s *StoreSuite) TestFetchWithoutToken() {
	session := mocks.NewMockSession(s.ctrl)
	session.EXPECT().Token().Return("")
	store, err := New(s.api, session)
	s.Require().NoError(err)

	s.ErrorIs(store.FetchByProject(s.ctx, "p1"), dErrors.ErrLoginRequired)
}

func (s *StoreSuite) TestFetchForProjectsMergesInRequestOrder() {
	var inFlight, peak atomic.Int32
	list := func(tasks ...domain.Task) func(context.Context, string, domain.ProjectID) ([]domain.Task, error) {
		return func(context.Context, string, domain.ProjectID) ([]domain.Task, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			return tasks, nil
		}
	}
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p1")).DoAndReturn(list(task("a", "p1", domain.StatusToDo)))
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p2")).DoAndReturn(list())
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p3")).DoAndReturn(list(task("b", "p3", domain.StatusDone), task("c", "p3", domain.StatusToDo)))

	s.Require().NoError(s.store.FetchForProjects(s.ctx, []domain.ProjectID{"p1", "p2", "p3"}))

	s.Equal([]domain.TaskID{"a", "b", "c"}, taskIDs(s.store.State().Tasks))
	s.LessOrEqual(peak.Load(), int32(4))
}

func (s *StoreSuite) TestFetchForProjectsFailsAsAWhole() {
	s.seed(task("t1", "p1", domain.StatusToDo))
	boom := dErrors.New(dErrors.CodeUnavailable, "could not reach the server")
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p1")).Return([]domain.Task{task("x", "p1", domain.StatusToDo)}, nil).AnyTimes()
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("p2")).Return(nil, boom)

	err := s.store.FetchForProjects(s.ctx, []domain.ProjectID{"p1", "p2"})
	s.True(errors.Is(err, boom))
	s.Equal([]domain.TaskID{"t1"}, taskIDs(s.store.State().Tasks))
}

func (s *StoreSuite) TestFencingDiscardsStaleResponse() {
	store, err := New(s.api, s.session, WithRequestFencing())
	s.Require().NoError(err)

	release := make(chan struct{})
	started := make(chan struct{})
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("old")).
		DoAndReturn(func(context.Context, string, domain.ProjectID) ([]domain.Task, error) {
			close(started)
			<-release
			return []domain.Task{task("stale", "old", domain.StatusToDo)}, nil
		})
	s.api.EXPECT().ListTasks(gomock.Any(), "tok", domain.ProjectID("new")).
		Return([]domain.Task{task("fresh", "new", domain.StatusToDo)}, nil)

	done := make(chan error, 1)
	go func() { done <- store.FetchByProject(s.ctx, "old") }()
	<-started
	s.Require().NoError(store.FetchByProject(s.ctx, "new"))
	close(release)

	s.ErrorIs(<-done, state.ErrSuperseded)
	s.Equal([]domain.TaskID{"fresh"}, taskIDs(store.State().Tasks))
}

// =============================================================================
// Mutations
// =============================================================================

func (s *StoreSuite) TestCreate() {
	s.seed(task("t1", "p1", domain.StatusToDo))

	s.Run("prepends the created task with defaults applied", func() {
		created := task("t2", "p1", domain.StatusToDo)
		s.api.EXPECT().CreateTask(gomock.Any(), "tok", domain.TaskInput{
			Title:     "Write docs",
			Status:    domain.StatusToDo,
			Priority:  domain.PriorityMedium,
			ProjectID: "p1",
		}).Return(&created, nil)

		got, err := s.store.Create(s.ctx, domain.TaskInput{Title: "Write docs", ProjectID: "p1"})
		s.Require().NoError(err)
		s.Equal(created.ID, got.ID)
		s.Equal([]domain.TaskID{"t2", "t1"}, taskIDs(s.store.State().Tasks))
	})

	s.Run("invalid input never reaches the server", func() {
		_, err := s.store.Create(s.ctx, domain.TaskInput{ProjectID: "p1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("Title is required", s.store.State().FieldErrors["title"])
	})

	s.Run("server field errors are recorded", func() {
		s.api.EXPECT().CreateTask(gomock.Any(), "tok", gomock.Any()).
			Return(nil, dErrors.Validation("validation failed", map[string]string{"assignee": "Assignee is not a member"}))
		_, err := s.store.Create(s.ctx, domain.TaskInput{Title: "x", ProjectID: "p1", Assignee: "u9"})
		s.Require().Error(err)
		s.Equal(map[string]string{"assignee": "Assignee is not a member"}, s.store.State().FieldErrors)
		s.Len(s.store.State().Tasks, 2)
	})
}

func (s *StoreSuite) TestUpdate() {
	s.seed(task("t1", "p1", domain.StatusToDo), task("t2", "p1", domain.StatusToDo))
	in := domain.TaskInput{Title: "task t2", Status: domain.StatusDone, Priority: domain.PriorityHigh, ProjectID: "p1"}

	s.Run("replaces by id keeping position", func() {
		updated := task("t2", "p1", domain.StatusDone)
		s.api.EXPECT().UpdateTask(gomock.Any(), "tok", domain.TaskID("t2"), in).Return(&updated, nil)
		_, err := s.store.Update(s.ctx, "t2", in)
		s.Require().NoError(err)
		st := s.store.State()
		s.Equal([]domain.TaskID{"t1", "t2"}, taskIDs(st.Tasks))
		s.Equal(domain.StatusDone, st.Tasks[1].Status)
	})

	s.Run("unknown id leaves the collection unchanged", func() {
		before := s.store.State().Tasks
		ghost := task("t9", "p1", domain.StatusDone)
		s.api.EXPECT().UpdateTask(gomock.Any(), "tok", domain.TaskID("t9"), in).Return(&ghost, nil)
		_, err := s.store.Update(s.ctx, "t9", in)
		s.Require().NoError(err)
		s.Equal(before, s.store.State().Tasks)
	})
}

func (s *StoreSuite) TestDelete() {
	s.seed(task("t1", "p1", domain.StatusToDo), task("t2", "p1", domain.StatusToDo), task("t3", "p1", domain.StatusToDo))

	s.Run("removes exactly one and keeps order", func() {
		s.api.EXPECT().DeleteTask(gomock.Any(), "tok", domain.TaskID("t2")).Return(nil)
		s.Require().NoError(s.store.Delete(s.ctx, "t2"))
		s.Equal([]domain.TaskID{"t1", "t3"}, taskIDs(s.store.State().Tasks))
	})

	s.Run("failure keeps the task", func() {
		s.api.EXPECT().DeleteTask(gomock.Any(), "tok", domain.TaskID("t1")).
			Return(dErrors.New(dErrors.CodeInternal, "Something went wrong. Please try again later."))
		s.Error(s.store.Delete(s.ctx, "t1"))
		s.Equal([]domain.TaskID{"t1", "t3"}, taskIDs(s.store.State().Tasks))
		s.Equal("Something went wrong. Please try again later.", s.store.State().Error)
	})
}
