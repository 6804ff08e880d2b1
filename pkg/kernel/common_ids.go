package kernel

// UserID identifies a User row. Stable for the lifetime of the account.
type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

// ApplicationID identifies a registered OAuth client (Application).
type ApplicationID string

func NewApplicationID(id string) ApplicationID { return ApplicationID(id) }
func (a ApplicationID) String() string         { return string(a) }
func (a ApplicationID) IsEmpty() bool          { return string(a) == "" }

// GroupID identifies a UserGroup.
type GroupID string

func NewGroupID(id string) GroupID { return GroupID(id) }
func (g GroupID) String() string   { return string(g) }
func (g GroupID) IsEmpty() bool    { return string(g) == "" }
