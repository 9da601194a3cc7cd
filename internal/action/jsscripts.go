package action

// These scripts are data, not code to translate: the in-page JS the
// fill and scroll primitives evaluate through Runtime.callFunctionOn,
// each taking the target object as `this` and any other parameters as
// arguments. Grounded on the teacher's own inline browserType/Evaluate
// scripts for the native-setter trick and the change/input dispatch.

// fillScript sets a value the React/Vue-style way: through the
// platform's own HTMLInputElement/HTMLTextAreaElement value setter
// (bypassing any setter the framework may have wrapped the property
// in), then dispatches bubbling input and change events. Falls back to
// a direct assignment if no native setter is found for the element's
// prototype. Returns the value actually read back so the caller can
// detect a value that didn't stick.
const fillScript = `
function(value) {
  this.focus();
  const proto = Object.getPrototypeOf(this);
  const desc = Object.getOwnPropertyDescriptor(proto, 'value');
  if (desc && typeof desc.set === 'function') {
    desc.set.call(this, value);
  } else {
    this.value = value;
  }
  this.dispatchEvent(new Event('input', { bubbles: true }));
  this.dispatchEvent(new Event('change', { bubbles: true }));
  return this.value;
}
`

// fillContentEditableScript sets innerText on a contentEditable host and
// dispatches a bubbling input event, the closest analog to a real
// keystroke sequence a contentEditable region listens for.
const fillContentEditableScript = `
function(value) {
  this.focus();
  this.innerText = value;
  this.dispatchEvent(new Event('input', { bubbles: true }));
  return this.innerText;
}
`

// isContentEditableScript probes whether the target participates in
// contentEditable rather than value-based editing.
const isContentEditableScript = `
function() {
  return this.isContentEditable === true;
}
`

// scrollRefScript resolves the in-page scroll target for a ref-bound
// scroll per spec §4.7.4: walk from the element upward looking for an
// ancestor whose computed overflowY is auto/scroll and whose
// scrollHeight exceeds its clientHeight; fall back to the document
// scrolling element if none exists. direction is "up" or "down";
// amountKind is "page", "to-top", "to-bottom", or "number"; amountValue
// is only read when amountKind is "number".
const scrollRefScript = `
function(direction, amountKind, amountValue) {
  function isScrollable(el) {
    if (!el || el.nodeType !== 1) return false;
    const style = window.getComputedStyle(el);
    return (style.overflowY === 'auto' || style.overflowY === 'scroll') && el.scrollHeight > el.clientHeight;
  }

  let target = this;
  let fallback = false;
  while (target && target !== document.documentElement && !isScrollable(target)) {
    target = target.parentElement;
  }
  if (!target || !isScrollable(target)) {
    target = document.scrollingElement || document.documentElement || document.body;
    fallback = true;
  }

  const scrollTopBefore = target.scrollTop;
  let scrollTopAfter;
  if (amountKind === 'to-top') {
    scrollTopAfter = 0;
  } else if (amountKind === 'to-bottom') {
    scrollTopAfter = Math.max(0, target.scrollHeight - target.clientHeight);
  } else {
    const delta = amountKind === 'page' ? target.clientHeight : amountValue;
    scrollTopAfter = scrollTopBefore + (direction === 'up' ? -delta : delta);
  }
  target.scrollTop = scrollTopAfter;

  return {
    scrollTopBefore: scrollTopBefore,
    scrollTopAfter: target.scrollTop,
    scrollHeight: target.scrollHeight,
    clientHeight: target.clientHeight,
    containerTag: target.tagName ? target.tagName.toLowerCase() : 'html',
    fallback: fallback,
  };
}
`

// layoutShiftObserverScript installs a PerformanceObserver for the
// layout-shift entry type on window and stashes the running CLS total
// and shift count on a well-known global so a later evaluate can read
// and tear it down.
const layoutShiftObserverScript = `
(function() {
  window.__bsLayoutShift = { cls: 0, count: 0 };
  const observer = new PerformanceObserver((list) => {
    for (const entry of list.getEntries()) {
      if (!entry.hadRecentInput) {
        window.__bsLayoutShift.cls += entry.value;
        window.__bsLayoutShift.count += 1;
      }
    }
  });
  observer.observe({ type: 'layout-shift', buffered: true });
  window.__bsLayoutShiftObserver = observer;
})()
`

// layoutShiftCollectScript disconnects the observer installed above and
// returns the accumulated totals.
const layoutShiftCollectScript = `
(function() {
  const result = window.__bsLayoutShift || { cls: 0, count: 0 };
  if (window.__bsLayoutShiftObserver) {
    window.__bsLayoutShiftObserver.disconnect();
    delete window.__bsLayoutShiftObserver;
  }
  delete window.__bsLayoutShift;
  return result;
})()
`

// scrollViewportScript is scrollRefScript's no-ref counterpart: the
// target is always document.scrollingElement (or its documentElement/
// body fallbacks), so there is no ancestor walk and fallback is always
// true per spec §4.7.4's viewport path.
const scrollViewportScript = `
function(direction, amountKind, amountValue) {
  const target = document.scrollingElement || document.documentElement || document.body;

  const scrollTopBefore = target.scrollTop;
  let scrollTopAfter;
  if (amountKind === 'to-top') {
    scrollTopAfter = 0;
  } else if (amountKind === 'to-bottom') {
    scrollTopAfter = Math.max(0, target.scrollHeight - target.clientHeight);
  } else {
    const delta = amountKind === 'page' ? target.clientHeight : amountValue;
    scrollTopAfter = scrollTopBefore + (direction === 'up' ? -delta : delta);
  }
  target.scrollTop = scrollTopAfter;

  return {
    scrollTopBefore: scrollTopBefore,
    scrollTopAfter: target.scrollTop,
    scrollHeight: target.scrollHeight,
    clientHeight: target.clientHeight,
    containerTag: target.tagName ? target.tagName.toLowerCase() : 'html',
    fallback: true,
  };
}
`
