package oracle

// specialCase is one entry of the recipe-name -> PyPI-name override table.
// A nil Index means "this is a known python package, but attempting an
// index install is never correct for it" — a distinct tri-state from the
// name simply being absent from the table altogether (spec §9, Open
// Questions: "the special-case table contains `none` entries; their
// semantics are 'do not attempt index installation', distinct from 'not
// a language package'").
type specialCase struct {
	Recipe string
	Index  *string // nil => explicit "do not map"
}

func idx(s string) *string { return &s }

// specialCases reproduces, verbatim, the naming-mismatch table from the
// original afterpkg.py (sbo_to_pypi_specials): case changes, dash <->
// underscore swaps, and prefix changes observed between SlackBuild
// recipe names and their PyPI distribution names. Spec §4.2 requires
// implementations to include the exact entries enumerated in the
// source to preserve behaviour.
var specialCases = []specialCase{
	{"python-cheetah", idx("Cheetah")},
	{"python-django-legacy", idx("Django")},
	{"python-xrandr", nil},
	{"python-importlib_metadata", idx("importlib-metadata")},
	{"python-uri-templates", idx("uri-template")},
	{"python-pmw", idx("Pmw")},
	{"python-django", idx("Django")},
	{"python-distutils-extra", nil},
	{"python-elib.intl", idx("elib")},
	{"python-configargparse", idx("ConfigArgParse")},
	{"python-slip", idx("SLIP")},
	{"python-setuptools-doc", nil},
	{"python-keybinder", nil},
	{"python-twisted", idx("Twisted")},

	// Python 3
	{"python3-setuptools_autover", nil},
	{"python3-jupyter-ipykernel", idx("ipykernel")},
	{"python3-django", idx("Django")},
	{"python3-babel", idx("Babel")},
	{"python3-prompt_toolkit", idx("prompt-toolkit")},
	{"python3-cycler", idx("Cycler")},
	{"python3-dvdvideo", nil},

	{"websocket-client", idx("websocket_client")},
}

// lookupSpecialCase returns the table entry for name, if any, and whether
// one was found at all (the tri-state described above).
func lookupSpecialCase(name string) (mapped *string, found bool) {
	for _, sc := range specialCases {
		if sc.Recipe == name {
			return sc.Index, true
		}
	}
	return nil, false
}
