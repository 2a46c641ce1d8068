package reconcile

// Options selects which historical variant of the configuration rows to read.
type Options struct {
	// FilterDisabled keeps only rows whose status is 0.
	FilterDisabled bool
	// DisplayNames reads the "name" column into Host.Name.
	DisplayNames bool
	// ItemIDs reads the "itemid" column into Item.ItemID.
	ItemIDs bool
	// Compress lists key separator tokens applied in order, see CompressKey.
	Compress []string
}

func DefaultOptions() Options {
	return Options{
		FilterDisabled: true,
		DisplayNames:   true,
		ItemIDs:        false,
		Compress:       nil,
	}
}
