package v1

var (
	// common errors
	ErrSuccess             = newError(0, "ok")
	ErrBadRequest          = newError(400, "bad request")
	ErrUnauthorized        = newError(401, "unauthorized")
	ErrNotFound            = newError(404, "not found")
	ErrInternalServerError = newError(500, "internal server error")

	// user errors
	ErrEmailAlreadyUse    = newError(1001, "The email is already in use.")
	ErrUsernameAlreadyUse = newError(1002, "The username is already in use.")

	// sync errors
	ErrRepositoryNotFound  = newError(2001, "repository not found")
	ErrRepositoryNameInUse = newError(2002, "repository name already in use")
	ErrTaskAlreadyExists   = newError(2003, "a task for this repository and resource already exists")
	ErrTaskNotFound        = newError(2011, "task not found")
	ErrUnknownResource     = newError(2004, "unknown resource")
	ErrInvalidSyncPolicy   = newError(2005, "invalid sync policy")
	ErrSyncAlreadyRunning  = newError(2006, "a synchronization run is already in progress")
	ErrPushNotAccepted     = newError(2007, "this node does not accept pushes from the peer")
	ErrConflictNotFound    = newError(2008, "conflict not found")
	ErrJobNotFound         = newError(2009, "job not found")
	ErrInvalidCronSpec     = newError(2010, "invalid cron spec")
)
