package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTaskPolicies(t *testing.T) {
	owner := &User{ID: uuid.New()}
	stranger := &User{ID: uuid.New()}
	guestOwner := &User{ID: uuid.New(), IsGuest: true}

	ownedTask := &Task{ID: uuid.New(), UserID: owner.ID}
	guestTask := &Task{ID: uuid.New(), UserID: guestOwner.ID}

	checks := map[string]func(*User, *Task) Decision{
		"view":     CanViewTask,
		"update":   CanUpdateTask,
		"delete":   CanDeleteTask,
		"complete": CanCompleteTask,
		"archive":  CanArchiveTask,
		"download": CanDownloadAttachment,
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			assert.True(t, check(owner, ownedTask).Allowed)

			d := check(stranger, ownedTask)
			assert.False(t, d.Allowed)
			assert.True(t, errors.Is(d.Err(), ErrNotOwned))

			d = check(guestOwner, guestTask)
			assert.False(t, d.Allowed, "guests are blocked even on their own tasks")
			assert.True(t, errors.Is(d.Err(), ErrGuestForbidden))

			d = check(nil, ownedTask)
			assert.False(t, d.Allowed)
			assert.True(t, IsUnauthenticated(d.Err()))
		})
	}
}

func TestCanRestoreTask_GuestNotBlocked(t *testing.T) {
	guest := &User{ID: uuid.New(), IsGuest: true}

	assert.True(t, CanRestoreTask(guest, &Task{UserID: guest.ID}).Allowed)

	d := CanRestoreTask(guest, &Task{UserID: uuid.New()})
	assert.False(t, d.Allowed)
	assert.ErrorIs(t, d.Err(), ErrNotOwned)
}

func TestRegisteredOnlyPolicies(t *testing.T) {
	user := &User{ID: uuid.New()}
	guest := &User{ID: uuid.New(), IsGuest: true}

	for _, check := range []func(*User) Decision{CanCreateTask, CanReorderTasks, CanManageTags} {
		assert.True(t, check(user).Allowed)
		assert.ErrorIs(t, check(guest).Err(), ErrGuestForbidden)
	}

	assert.True(t, CanListTasks(guest).Allowed)
	assert.False(t, CanListTasks(nil).Allowed)
}

func TestDecisionReasons(t *testing.T) {
	guest := &User{ID: uuid.New(), IsGuest: true}
	user := &User{ID: uuid.New()}

	assert.Equal(t, "Guest users cannot update tasks.", CanUpdateTask(guest, &Task{}).Reason)
	assert.Equal(t, "Guest users cannot manage tags.", CanManageTags(guest).Reason)
	assert.Equal(t, "You can only delete your own tasks.", CanDeleteTask(user, &Task{UserID: uuid.New()}).Reason)
	assert.Nil(t, CanDeleteTask(user, &Task{UserID: user.ID}).Err())

	var perr *PolicyError
	assert.True(t, errors.As(CanViewTask(user, &Task{}).Err(), &perr))
	assert.Equal(t, ActionView, perr.Action)
}
