// Packets exchanged with the login server.
package packets

// Opcodes handled by the login endpoint.
const (
	LoginRequestType      = 1
	LoginResultType       = 2
	ServerListRequestType = 3
	ServerEntryType       = 4
	ServerListEndType     = 5
)

// LoginResultCode is the outcome of a credential check. The client maps
// each value to a canned dialog message.
type LoginResultCode int8

const (
	LoginOK             LoginResultCode = 0
	LoginBadID          LoginResultCode = -1
	LoginBadPassword    LoginResultCode = -2
	LoginBanned         LoginResultCode = -3
	LoginInvalidAccount LoginResultCode = -4
	LoginAlreadyOnline  LoginResultCode = -5
	LoginBadVersion     LoginResultCode = -6
)

// ClientVersion is the only protocol revision this server speaks. Clients
// reporting anything else are turned away with LoginBadVersion.
const ClientVersion = 956

// LoginRequest carries the credentials entered on the title screen.
type LoginRequest struct {
	Username string // 17 bytes ASCII
	Password string // 17 bytes ASCII
	Version  uint16
}

func (p *LoginRequest) ID() int16 { return LoginRequestType }

func (p *LoginRequest) encodeTo(w *writer) {
	w.astring(p.Username, 17)
	w.astring(p.Password, 17)
	w.uint16(p.Version)
}

func (p *LoginRequest) decodeFrom(r *reader) {
	p.Username = r.astring(17)
	p.Password = r.astring(17)
	p.Version = r.uint16()
}

// LoginResult answers a LoginRequest.
type LoginResult struct {
	Result LoginResultCode
}

func (p *LoginResult) ID() int16            { return LoginResultType }
func (p *LoginResult) encodeTo(w *writer)   { w.int8(int8(p.Result)) }
func (p *LoginResult) decodeFrom(r *reader) { p.Result = LoginResultCode(r.int8()) }

// ServerListRequest asks for the game server roster. Only valid after a
// successful login.
type ServerListRequest struct{}

func (p *ServerListRequest) ID() int16          { return ServerListRequestType }
func (p *ServerListRequest) encodeTo(*writer)   {}
func (p *ServerListRequest) decodeFrom(*reader) {}

// ServerEntry describes one game server. The roster is sent as a sequence
// of these followed by a ServerListEnd.
type ServerEntry struct {
	Number        int16
	Address       string // 129 bytes ASCII
	Port          uint16
	EncryptionKey string // 57 bytes ASCII, unused by current clients
	Name          string // 13 UTF-16 units
	Comment       string // 13 UTF-16 units
	MaxPlayers    int16
	NowPlayers    int16
}

func (p *ServerEntry) ID() int16 { return ServerEntryType }

func (p *ServerEntry) encodeTo(w *writer) {
	w.int16(p.Number)
	w.astring(p.Address, 129)
	w.uint16(p.Port)
	w.astring(p.EncryptionKey, 57)
	w.wstring(p.Name, 13)
	w.wstring(p.Comment, 13)
	w.int16(p.MaxPlayers)
	w.int16(p.NowPlayers)
}

func (p *ServerEntry) decodeFrom(r *reader) {
	p.Number = r.int16()
	p.Address = r.astring(129)
	p.Port = r.uint16()
	p.EncryptionKey = r.astring(57)
	p.Name = r.wstring(13)
	p.Comment = r.wstring(13)
	p.MaxPlayers = r.int16()
	p.NowPlayers = r.int16()
}

// ServerListEnd terminates the roster.
type ServerListEnd struct{}

func (p *ServerListEnd) ID() int16          { return ServerListEndType }
func (p *ServerListEnd) encodeTo(*writer)   {}
func (p *ServerListEnd) decodeFrom(*reader) {}
