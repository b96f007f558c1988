package sfc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const appVue = `<template>
  <div id="app" :class="{ active: isActive }">
    <template v-if="items.length">
      <MyItem v-for="i in items" :key="i" />
    </template>
    <p>{{ msg }}</p>
  </div>
</template>

<script>
import MyItem from './MyItem.vue'

export default {
  components: { MyItem },
  data() {
    return { msg: "a < b && c > d", items: [], isActive: true }
  }
}
</script>

<style>
#app { color: red; }
</style>

<style lang="less">
@c: blue;
p { color: @c; }
</style>
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(appVue))
	require.NoError(t, err)

	require.NotNil(t, c.Template)
	require.Contains(t, c.Template.Content, `<template v-if="items.length">`)
	require.Contains(t, c.Template.Content, `<MyItem v-for="i in items" :key="i" />`)
	require.Contains(t, c.Template.Content, `<p>{{ msg }}</p>`)

	require.NotNil(t, c.Script)
	require.Contains(t, c.Script.Content, `msg: "a < b && c > d"`)
	require.Equal(t, "js", c.ScriptLang())

	require.Len(t, c.Styles, 2)
	require.Equal(t, "css", c.Styles[0].Lang("css"))
	require.Equal(t, "less", c.Styles[1].Lang("css"))
	require.Contains(t, c.Styles[1].Content, "@c: blue;")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{name: "script setup", src: "<script setup>const a = 1</script>", wantErr: ErrScriptSetup},
		{name: "external template", src: `<template src="./app.html"></template>`, wantErr: ErrExternalSource},
		{name: "two scripts", src: "<script>export default {}</script><script>export default {}</script>", wantErr: ErrDuplicateBlock},
		{name: "two templates", src: "<template><a/></template><template><b/></template>", wantErr: ErrDuplicateBlock},
		{name: "unterminated", src: "<template><div>", wantErr: ErrUnterminatedBlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestModule(t *testing.T) {
	c, err := Parse([]byte(appVue))
	require.NoError(t, err)

	code, err := c.Module("injectStyle(\"#app{}\");")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(code, "injectStyle(\"#app{}\");\n"))
	require.Contains(t, code, "import MyItem from './MyItem.vue'")
	require.Contains(t, code, "const __sfc__ = {")
	require.NotContains(t, code, "export default {")
	require.Contains(t, code, "__sfc__.template = \"\\u003cdiv id=")
	require.True(t, strings.HasSuffix(code, "export default __sfc__;\n"))
}

func TestModule_TemplateOnly(t *testing.T) {
	c, err := Parse([]byte("<template><span>hi</span></template>"))
	require.NoError(t, err)

	code, err := c.Module()
	require.NoError(t, err)
	require.Equal(t, "const __sfc__ = {}\n__sfc__.template = \"\\u003cspan\\u003ehi\\u003c/span\\u003e\";\nexport default __sfc__;\n", code)
}

func TestModule_NoDefaultExport(t *testing.T) {
	c, err := Parse([]byte("<script>export const a = 1</script>"))
	require.NoError(t, err)

	_, err = c.Module()
	require.ErrorIs(t, err, ErrNoDefaultExport)
}

func TestScriptLang(t *testing.T) {
	c, err := Parse([]byte(`<script lang="ts">export default {} as const</script>`))
	require.NoError(t, err)
	require.Equal(t, "ts", c.ScriptLang())
}
