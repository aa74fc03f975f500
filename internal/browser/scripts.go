// internal/browser/scripts.go
package browser

// Element-level helpers shared by the live drivers. Each is a function
// declaration invoked with the element bound to `this`, so it can be passed to
// Runtime.callFunctionOn as is. Drivers whose evaluate API passes the element
// as an argument wrap them with BindThis.
const (
	// VisibleJS mirrors what a user would consider displayed: attached, not
	// hidden by style on itself or an ancestor, and occupying a box.
	VisibleJS = `function() {
	if (!this.isConnected) return false;
	for (let n = this; n && n.nodeType === 1; n = n.parentElement) {
		const s = window.getComputedStyle(n);
		if (s.display === 'none') return false;
		if (n === this && (s.visibility === 'hidden' || s.visibility === 'collapse')) return false;
		if (parseFloat(s.opacity) === 0) return false;
	}
	if (this.tagName === 'INPUT' && (this.type || '').toLowerCase() === 'hidden') return false;
	const r = this.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
}`

	EnabledJS = `function() {
	if (typeof this.matches === 'function' && this.matches(':disabled')) return false;
	return true;
}`

	TextJS = `function() {
	const t = this.innerText;
	return typeof t === 'string' ? t : (this.textContent || '');
}`

	// AttributeJS returns null for an absent attribute. "value" reads the live
	// property for form controls so typed text is seen.
	AttributeJS = `function(name) {
	if (name === 'value' && (this.tagName === 'INPUT' || this.tagName === 'TEXTAREA' || this.tagName === 'BUTTON')) {
		return this.value;
	}
	return this.getAttribute(name);
}`

	ClearJS = `function() {
	if (this.tagName === 'INPUT' || this.tagName === 'TEXTAREA') {
		this.value = '';
	} else if (this.isContentEditable) {
		this.textContent = '';
	} else {
		return false;
	}
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

	ScrollIntoViewJS = `function() {
	this.scrollIntoView({ block: 'center', inline: 'nearest' });
	return true;
}`

	ClickJS = `function() {
	this.click();
	return true;
}`
)

// Document-level expressions evaluated in the top-level window.
const (
	ReadyStateJS     = `document.readyState`
	ScrollToBottomJS = `window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`
	ScrollHeightJS   = `document.body ? document.body.scrollHeight : 0`
)

// BindThis adapts a `this`-bound function declaration to an arrow function
// taking the element as its first argument and an optional second argument.
func BindThis(fn string) string {
	return "(el, arg) => (" + fn + ").call(el, arg)"
}
