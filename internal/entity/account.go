package entity

type Account struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	RoomID       int    `json:"roomId"`
}

func (that *Account) InLobby() bool {
	return that.RoomID == LobbyRoomID
}
