package models

// Account is a remote mailbox a user ingests from. The IMAP password is stored
// only as an AES-GCM blob; it is decrypted in memory when a session is opened
// and never logged.
type Account struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Address           string `json:"address"`
	IMAPHost          string `json:"imap_host"`
	IMAPPort          int    `json:"imap_port"`
	EncryptedPassword []byte `json:"-"`
}
