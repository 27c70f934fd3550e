package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskportal/pkg/domain"
)

func TestAssignedTo(t *testing.T) {
	alice := domain.User{ID: "alice"}
	list := []domain.Task{
		{ID: "t1", Assignee: domain.RefID("alice")},
		{ID: "t2", Assignee: domain.RefTo(alice)},
		{ID: "t3", Assignee: domain.RefID("bob")},
		{ID: "t4"},
	}

	assert.Equal(t, []domain.TaskID{"t1", "t2"}, taskIDs(AssignedTo(list, "alice")))
	assert.Empty(t, AssignedTo(list, ""))
	assert.NotNil(t, AssignedTo(nil, "alice"))
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts([]domain.Task{
		{Status: domain.StatusToDo},
		{Status: domain.StatusToDo},
		{Status: domain.StatusDone},
	})

	assert.Equal(t, map[domain.TaskStatus]int{
		domain.StatusToDo:       2,
		domain.StatusInProgress: 0,
		domain.StatusDone:       1,
	}, counts)
}

func TestCountByProject(t *testing.T) {
	projects := []domain.Project{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
	list := []domain.Task{{ProjectID: "p2"}, {ProjectID: "p2"}, {ProjectID: "p9"}}

	got := CountByProject(projects, list)

	assert.Equal(t, []ProjectCount{
		{Project: projects[0], Count: 0},
		{Project: projects[1], Count: 2},
	}, got)
}
