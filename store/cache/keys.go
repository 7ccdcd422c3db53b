package cache

import "fmt"

// Cache key formats. These strings are a wire contract with the shared cache
// instance: any process computing a key for the same logical object must
// produce the identical string.
//
// - user:{uid}:rooms            room list projection of a user
// - room:{rid}:participants     participant list projection of a room
// - room:{rid}:details          room detail projection
// - user:{uid}:room:{rid}:member membership flag for a (user, room) pair
// - user:{uid}                  user profile projection
const (
	keyUserRoomsFmt        = "user:%d:rooms"
	keyRoomParticipantsFmt = "room:%d:participants"
	keyRoomDetailsFmt      = "room:%d:details"
	keyMembershipFmt       = "user:%d:room:%d:member"
	keyUserProfileFmt      = "user:%d"
)

func UserRoomsKey(userID int32) string { return fmt.Sprintf(keyUserRoomsFmt, userID) }

func RoomParticipantsKey(roomID int32) string { return fmt.Sprintf(keyRoomParticipantsFmt, roomID) }

func RoomDetailsKey(roomID int32) string { return fmt.Sprintf(keyRoomDetailsFmt, roomID) }

func MembershipKey(userID, roomID int32) string {
	return fmt.Sprintf(keyMembershipFmt, userID, roomID)
}

func UserProfileKey(userID int32) string { return fmt.Sprintf(keyUserProfileFmt, userID) }
