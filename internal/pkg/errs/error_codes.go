/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Conversation and Message Business Logic Errors
const (
	// ErrConversationNotFound indicates that the referenced conversation does not exist.
	ErrConversationNotFound = 2101

	// ErrNotParticipant indicates that the caller is not a participant of the conversation.
	ErrNotParticipant = 2102

	// ErrMessageNotFound indicates that the referenced message does not exist in the conversation.
	ErrMessageNotFound = 2103

	// ErrNotMessageSender indicates that only the original sender may edit or delete a message.
	ErrNotMessageSender = 2104

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates that an empty message body was submitted.
	ErrMessageContentEmpty = 2202

	// ErrReactionInvalid indicates that the supplied reaction emoji is not in the allowed set.
	ErrReactionInvalid = 2203
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates that no valid session token accompanied the request.
	ErrUnauthorized = 3001

	// ErrInvalidDisplayName indicates that the supplied display name failed validation.
	ErrInvalidDisplayName = 3002

	// ErrUserNotFound indicates that the referenced user account does not exist.
	ErrUserNotFound = 3003

	// ErrSessionReplaced indicates that the session was superseded by a newer connection.
	ErrSessionReplaced = 3004

	// ErrPermissionDenied indicates a store-level permission failure. Expected during
	// sign-out races; callers on non-critical paths suppress it.
	ErrPermissionDenied = 3005
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the backing document store rejected or timed out a request.
	ErrStoreUnavailable = 5001

	// ErrFileStorageFailed indicates a failure while talking to the avatar object storage.
	ErrFileStorageFailed = 5002
)
