package ast

// SetPosition and SetDate let the parser build a directive in two steps:
// construct it with its directive-specific fields, then attach the position
// and date once both are known. This mirrors how withComment/withMetadata
// let the parser attach trivia after construction.

func (c *Commodity) SetPosition(pos Position) { c.Pos = pos }
func (c *Commodity) SetDate(d *Date)          { c.Date = d }

func (o *Open) SetPosition(pos Position) { o.Pos = pos }
func (o *Open) SetDate(d *Date)          { o.Date = d }

func (c *Close) SetPosition(pos Position) { c.Pos = pos }
func (c *Close) SetDate(d *Date)          { c.Date = d }

func (b *Balance) SetPosition(pos Position) { b.Pos = pos }
func (b *Balance) SetDate(d *Date)          { b.Date = d }

func (p *Pad) SetPosition(pos Position) { p.Pos = pos }
func (p *Pad) SetDate(d *Date)          { p.Date = d }

func (n *Note) SetPosition(pos Position) { n.Pos = pos }
func (n *Note) SetDate(d *Date)          { n.Date = d }

func (d *Document) SetPosition(pos Position) { d.Pos = pos }
func (d *Document) SetDate(date *Date)       { d.Date = date }

func (p *Price) SetPosition(pos Position) { p.Pos = pos }
func (p *Price) SetDate(d *Date)          { p.Date = d }

func (e *Event) SetPosition(pos Position) { e.Pos = pos }
func (e *Event) SetDate(d *Date)          { e.Date = d }

func (c *Custom) SetPosition(pos Position) { c.Pos = pos }
func (c *Custom) SetDate(d *Date)          { c.Date = d }

func (t *Transaction) SetPosition(pos Position) { t.Pos = pos }
func (t *Transaction) SetDate(d *Date)          { t.Date = d }
