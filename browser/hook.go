package browser

// hookScript is injected into the live session before any page script
// runs. It maintains the "attach handlers exactly once" loop inside the
// page: a MutationObserver and the Go-side poll both call __tsAttach,
// which is idempotent via a per-element dataset marker.
//
// The click listener runs in the capturing phase so the pre-click
// snapshot is taken before the host's own handler opens the dialog and
// mutates the DOM; by then the clicked element's ancestry may already be
// unreachable. Snapshots queue up in window.__tsClicks for the Go side
// to drain.
const hookScript = `
(function() {
	if (window.__tsHooked) return;
	window.__tsHooked = true;
	window.__tsClicks = [];

	var CONTAINER_SELECTORS = ['article', '[role="article"]', 'div[class*="x1lliihq"]'];
	var CONTENT_SELECTORS = ['[class*="x1lliihq"][class*="x1plvlek"]', 'span[class*="x193iq5w"]'];

	function closestContainer(el) {
		for (var i = 0; i < CONTAINER_SELECTORS.length; i++) {
			var c = el.closest(CONTAINER_SELECTORS[i]);
			if (c) return c;
		}
		return null;
	}

	function snapshot(button) {
		var snap = { content: '', author: '', authorUrl: '' };
		var container = closestContainer(button);
		if (!container) return snap;
		for (var i = 0; i < CONTENT_SELECTORS.length; i++) {
			var span = container.querySelector(CONTENT_SELECTORS[i]);
			if (span && span.innerText) { snap.content = span.innerText; break; }
		}
		var author = container.querySelector('a[role="link"][href*="/@"]');
		if (author) {
			snap.author = author.innerText || '';
			snap.authorUrl = author.href || '';
		}
		return snap;
	}

	window.__tsAttach = function() {
		var buttons = Array.prototype.filter.call(
			document.querySelectorAll('[role="button"]'),
			function(b) {
				var t = b.textContent || '';
				return t.indexOf('Get embed code') !== -1 || t.indexOf('取得內嵌程式碼') !== -1;
			});
		var attached = 0;
		buttons.forEach(function(b) {
			if (b.dataset.tsAttached) return;
			b.dataset.tsAttached = 'true';
			attached++;
			b.addEventListener('click', function() {
				window.__tsClicks.push(snapshot(b));
			}, true);
		});
		return attached;
	};

	new MutationObserver(function() { window.__tsAttach(); })
		.observe(document.documentElement, { childList: true, subtree: true });

	if (document.readyState !== 'loading') {
		window.__tsAttach();
	} else {
		document.addEventListener('DOMContentLoaded', function() { window.__tsAttach(); });
	}
})();
`

// attachCall re-runs the attach routine; safe to call any number of
// times. Returns the number of newly attached buttons.
const attachCall = `window.__tsAttach ? window.__tsAttach() : 0`

// drainCall empties and returns the queued pre-click snapshots.
const drainCall = `(window.__tsClicks || []).splice(0, Infinity)`

// toastCall shows a transient on-screen notification, mirroring the
// host page's own toast styling closely enough to read as native.
const toastCall = `
(function(msg) {
	var t = document.createElement('div');
	t.textContent = msg;
	t.style.cssText = 'position:fixed;top:70px;left:50%%;transform:translateX(-50%%);' +
		'background:#000;color:#fff;padding:8px 16px;border-radius:6px;' +
		'font-size:13px;z-index:99999;';
	document.body.appendChild(t);
	setTimeout(function() { t.remove(); }, 2200);
})(%s)`
