package adapter

import "strings"

// envKeyReplacer maps nested keys to env names: server.url -> REVEIL_SERVER_URL
var envKeyReplacer = strings.NewReplacer(".", "_")

// envKeys are bound explicitly so Unmarshal sees env-only values
var envKeys = []string{
	"server.url",
	"server.token",
	"server.user_id",
	"server.username",
	"identity.anonymous_id",
	"player.command",
	"downloads.dir",
	"ui.theme",
	"ui.page_size",
	"logging.file",
	"logging.level",
}
