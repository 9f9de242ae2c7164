package catalog

// Item is the capability shared by every browsable catalog entry: something
// with a display name and an optional logo. Channels, series and groups all
// satisfy it, so presentation and logo-cache collaborators can treat them
// uniformly without caring which variant they hold.
type Item interface {
	DisplayName() string
	LogoURL() string
	LogoLocalPath() string
}

func (c *Channel) DisplayName() string   { return c.Name }
func (c *Channel) LogoURL() string       { return c.Logo }
func (c *Channel) LogoLocalPath() string { return c.LogoPath }

func (s *Serie) DisplayName() string   { return s.Name }
func (s *Serie) LogoURL() string       { return s.Logo }
func (s *Serie) LogoLocalPath() string { return s.LogoPath }

func (g *Group) DisplayName() string   { return g.Name }
func (g *Group) LogoURL() string       { return "" }
func (g *Group) LogoLocalPath() string { return "" }
