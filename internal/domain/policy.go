package domain

import (
	"errors"
	"fmt"
)

// Action names an operation subject to a policy check.
type Action string

const (
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionView     Action = "view"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionComplete Action = "complete"
	ActionArchive  Action = "archive"
	ActionRestore  Action = "restore"
	ActionReorder  Action = "reorder"
	ActionDownload Action = "download"
	ActionTags     Action = "manage tags"
)

func (a Action) phrase() string {
	if a == ActionTags {
		return string(a)
	}
	return string(a) + " tasks"
}

// Decision is the outcome of a policy check.
type Decision struct {
	Action  Action
	Allowed bool
	Reason  string
	// Cause is ErrGuestForbidden or ErrNotOwned for denials.
	Cause error
}

// PolicyError is returned by Decision.Err for a denial.
type PolicyError struct {
	Action Action
	Reason string
	Cause  error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Action, e.Reason)
}

func (e *PolicyError) Unwrap() error { return e.Cause }

// Err returns nil when allowed, otherwise a *PolicyError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &PolicyError{Action: d.Action, Reason: d.Reason, Cause: d.Cause}
}

func allow(action Action) Decision {
	return Decision{Action: action, Allowed: true}
}

func denyGuest(action Action) Decision {
	return Decision{
		Action: action,
		Reason: fmt.Sprintf("Guest users cannot %s.", action.phrase()),
		Cause:  ErrGuestForbidden,
	}
}

func denyOwner(action Action) Decision {
	return Decision{
		Action: action,
		Reason: fmt.Sprintf("You can only %s your own tasks.", action),
		Cause:  ErrNotOwned,
	}
}

var errNoActor = errors.New("no authenticated user")

func denyAnonymous(action Action) Decision {
	return Decision{Action: action, Reason: "Unauthenticated.", Cause: errNoActor}
}

// IsUnauthenticated reports whether err came from a check with no actor.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, errNoActor)
}

func ownedTaskDecision(action Action, actor *User, task *Task, blockGuests bool) Decision {
	if actor == nil {
		return denyAnonymous(action)
	}
	if blockGuests && actor.IsGuest {
		return denyGuest(action)
	}
	if task == nil || task.UserID != actor.ID {
		return denyOwner(action)
	}
	return allow(action)
}

func registeredDecision(action Action, actor *User) Decision {
	if actor == nil {
		return denyAnonymous(action)
	}
	if actor.IsGuest {
		return denyGuest(action)
	}
	return allow(action)
}

// CanListTasks allows any authenticated user, guests included, to list their own tasks.
func CanListTasks(actor *User) Decision {
	if actor == nil {
		return denyAnonymous(ActionList)
	}
	return allow(ActionList)
}

// CanCreateTask allows registered users.
func CanCreateTask(actor *User) Decision { return registeredDecision(ActionCreate, actor) }

// CanReorderTasks allows registered users. Per-task ownership is enforced by
// the store, which ignores entries the actor does not own.
func CanReorderTasks(actor *User) Decision { return registeredDecision(ActionReorder, actor) }

// CanManageTags allows registered users to create, rename and delete tags.
func CanManageTags(actor *User) Decision { return registeredDecision(ActionTags, actor) }

// CanViewTask requires a registered owner.
func CanViewTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionView, actor, task, true)
}

// CanUpdateTask requires a registered owner.
func CanUpdateTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionUpdate, actor, task, true)
}

// CanDeleteTask requires a registered owner.
func CanDeleteTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionDelete, actor, task, true)
}

// CanCompleteTask requires a registered owner. It covers both complete and incomplete.
func CanCompleteTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionComplete, actor, task, true)
}

// CanArchiveTask requires a registered owner.
func CanArchiveTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionArchive, actor, task, true)
}

// CanRestoreTask requires ownership only; guests are not blocked from restoring.
func CanRestoreTask(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionRestore, actor, task, false)
}

// CanDownloadAttachment requires a registered owner of the attachment's task.
func CanDownloadAttachment(actor *User, task *Task) Decision {
	return ownedTaskDecision(ActionDownload, actor, task, true)
}
